// Package typed maps store records onto Go structs.
package typed

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/aretw0/datastore/pkg/core"
)

// Model is a typed view of a record.
// Data is a decoded copy; Record is the live handle it was decoded from.
type Model[T any] struct {
	Data   T
	Record *core.Record
	Saver  Saver[T] // Active Record reference interface
}

// Saver persists a model. Resource implements it.
type Saver[T any] interface {
	Save(ctx context.Context, m *Model[T]) error
}

// ID returns the primary key of the underlying record.
func (m *Model[T]) ID() any {
	if m.Record == nil {
		return nil
	}
	return m.Record.ID()
}

// Save persists Data using the attached saver.
func (m *Model[T]) Save(ctx context.Context) error {
	if m.Saver == nil {
		return fmt.Errorf("model is detached (missing Saver)")
	}
	return m.Saver.Save(ctx, m)
}

// Refresh decodes Data again from the live record, picking up changes
// injected since the model was built.
func (m *Model[T]) Refresh() error {
	if m.Record == nil {
		return fmt.Errorf("model has no record")
	}
	data, err := decode[T](m.Record.Attributes())
	if err != nil {
		return err
	}
	m.Data = data
	return nil
}

func encode[T any](v T) (core.Attributes, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var attrs core.Attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("failed to convert typed data to attributes: %w", err)
	}
	if attrs == nil {
		return nil, fmt.Errorf("typed data must encode to an object, got %s", raw)
	}
	return attrs, nil
}

func decode[T any](attrs core.Attributes) (T, error) {
	var data T
	raw, err := json.Marshal(attrs)
	if err != nil {
		return data, fmt.Errorf("attributes marshal failed: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("unmarshal to target type failed: %w", err)
	}
	return data, nil
}

func fromRecord[T any](rec *core.Record, saver Saver[T]) (*Model[T], error) {
	data, err := decode[T](rec.Attributes())
	if err != nil {
		return nil, fmt.Errorf("failed to process record %s: %w", rec, err)
	}
	return &Model[T]{Data: data, Record: rec, Saver: saver}, nil
}

func fromRecords[T any](recs []*core.Record, saver Saver[T]) ([]*Model[T], error) {
	out := make([]*Model[T], 0, len(recs))
	for _, rec := range recs {
		m, err := fromRecord(rec, saver)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
