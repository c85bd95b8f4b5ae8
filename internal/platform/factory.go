package platform

import (
	"fmt"

	"github.com/aretw0/datastore/pkg/core"
)

// New builds a DataStore from opts.
//
//	ds, err := datastore.New(
//		datastore.WithAdapter("memory", memory.New()),
//		datastore.WithDefinitions(core.Definition{Name: "post"}),
//	)
func New(opts ...Option) (*core.DataStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	defaultAdapter := o.defaultAdapter
	eventBuffer := o.eventBuffer
	definitions := o.definitions
	if cfg := o.config; cfg != nil {
		if defaultAdapter == "" {
			defaultAdapter = cfg.DefaultAdapter
		}
		if eventBuffer == core.DefaultEventBuffer && cfg.EventBuffer > 0 {
			eventBuffer = cfg.EventBuffer
		}
		definitions = append(cfg.Definitions(), definitions...)
	}

	ds := core.New(core.Config{
		Logger:         o.logger,
		DefaultAdapter: defaultAdapter,
		Matcher:        o.matcher,
		EventBuffer:    eventBuffer,
		Clock:          o.clock,
		Metrics:        o.metrics,
	})

	for _, a := range o.adapters {
		if err := ds.RegisterAdapter(a.name, a.adapter); err != nil {
			return nil, err
		}
	}
	for _, def := range definitions {
		if _, err := ds.DefineResource(def); err != nil {
			return nil, fmt.Errorf("failed to define %q: %w", def.Name, err)
		}
	}

	if o.logger != nil {
		o.logger.Debug("datastore ready", "resources", len(definitions), "adapters", len(o.adapters), "default_adapter", defaultAdapter)
	}
	return ds, nil
}
