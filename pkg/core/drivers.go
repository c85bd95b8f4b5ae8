package core

import (
	"context"
	"fmt"
	"time"
)

// Create persists attrs through the adapter and caches the response.
func (ds *DataStore) Create(ctx context.Context, resourceName string, attrs Attributes, opts ...CallOption) (rec *Record, err error) {
	const prefix = "DS.create(resourceName, attrs[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts, checkAttrs(prefix, attrs))
	if err != nil {
		return nil, err
	}
	defer ds.observe(c.def.Name, "create", time.Now(), &err)

	payload, err := ds.runWithCopy(ctx, c, createStages, attrs)
	if err != nil {
		return nil, err
	}
	ds.dispatching(c, "create")
	raw, err := c.adapter.Create(ctx, c.def, c.def.serialize(payload), c.opts)
	if err != nil {
		return nil, err
	}
	data, err := runHook(ctx, c.def, StageAfterCreate, c.def.deserialize(raw))
	if err != nil {
		return nil, err
	}
	return ds.commitOne(ctx, c, data, nil)
}

// Find returns the cached record for id, asking the adapter only on a cache miss
// or when called with WithBypassCache(true).
func (ds *DataStore) Find(ctx context.Context, resourceName string, id any, opts ...CallOption) (rec *Record, err error) {
	const prefix = "DS.find(resourceName, id[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts, checkID(prefix, id))
	if err != nil {
		return nil, err
	}
	key, _ := KeyOf(id)
	if !c.opts.BypassCache {
		if cached, ok := c.col.get(key); ok {
			return cached, nil
		}
	}
	defer ds.observe(c.def.Name, "find", time.Now(), &err)

	ds.dispatching(c, "find")
	raw, err := c.adapter.Find(ctx, c.def, id, c.opts)
	if err != nil {
		return nil, err
	}
	return ds.commitOne(ctx, c, c.def.deserialize(raw), id)
}

// FindAll asks the adapter for every item matching params and caches the response.
func (ds *DataStore) FindAll(ctx context.Context, resourceName string, params Params, opts ...CallOption) (recs []*Record, err error) {
	const prefix = "DS.findAll(resourceName, params[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts)
	if err != nil {
		return nil, err
	}
	defer ds.observe(c.def.Name, "findAll", time.Now(), &err)

	query, err := ds.transformQuery(ctx, c, params)
	if err != nil {
		return nil, err
	}
	ds.dispatching(c, "findAll")
	raw, err := c.adapter.FindAll(ctx, c.def, query, c.opts)
	if err != nil {
		return nil, err
	}
	return ds.commitMany(ctx, c, c.def.deserialize(raw))
}

// Update persists attrs for id through the adapter. On success the live record is
// merged with the response, its previous attributes are snapshotted and its saved
// timestamp advances. With WithCacheResponse(false) a detached record is returned
// and the store is left untouched.
func (ds *DataStore) Update(ctx context.Context, resourceName string, id any, attrs Attributes, opts ...CallOption) (rec *Record, err error) {
	const prefix = "DS.update(resourceName, id, attrs[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts, checkID(prefix, id), checkAttrs(prefix, attrs))
	if err != nil {
		return nil, err
	}
	defer ds.observe(c.def.Name, "update", time.Now(), &err)
	return ds.update(ctx, c, id, attrs)
}

func (ds *DataStore) update(ctx context.Context, c *call, id any, attrs Attributes) (*Record, error) {
	payload, err := ds.runWithCopy(ctx, c, updateStages, attrs)
	if err != nil {
		return nil, err
	}
	ds.dispatching(c, "update")
	raw, err := c.adapter.Update(ctx, c.def, id, c.def.serialize(payload), c.opts)
	if err != nil {
		return nil, err
	}
	data, err := runHook(ctx, c.def, StageAfterUpdate, c.def.deserialize(raw))
	if err != nil {
		return nil, err
	}
	return ds.commitOne(ctx, c, data, id)
}

// UpdateAll applies attrs to every item matching params in one adapter call.
// The update stages, serialize and deserialize run once per call; inject runs once
// per returned item. Nil params select everything.
func (ds *DataStore) UpdateAll(ctx context.Context, resourceName string, attrs Attributes, params Params, opts ...CallOption) (recs []*Record, err error) {
	const prefix = "DS.updateAll(resourceName, attrs, params[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts, checkAttrs(prefix, attrs))
	if err != nil {
		return nil, err
	}
	defer ds.observe(c.def.Name, "updateAll", time.Now(), &err)

	payload, err := ds.runWithCopy(ctx, c, updateStages, attrs)
	if err != nil {
		return nil, err
	}
	query, err := ds.transformQuery(ctx, c, params)
	if err != nil {
		return nil, err
	}
	ds.dispatching(c, "updateAll")
	raw, err := c.adapter.UpdateAll(ctx, c.def, c.def.serialize(payload), query, c.opts)
	if err != nil {
		return nil, err
	}
	data, err := runHook(ctx, c.def, StageAfterUpdate, c.def.deserialize(raw))
	if err != nil {
		return nil, err
	}
	return ds.commitMany(ctx, c, data)
}

// Save persists the current attributes of a cached record.
// With WithChangesOnly(true) only the attributes changed since the last save are
// sent, and a record without changes is returned as is.
func (ds *DataStore) Save(ctx context.Context, resourceName string, id any, opts ...CallOption) (rec *Record, err error) {
	const prefix = "DS.save(resourceName, id[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts, checkID(prefix, id))
	if err != nil {
		return nil, err
	}
	key, _ := KeyOf(id)
	cached, ok := c.col.get(key)
	if !ok {
		return nil, notInStore(prefix)
	}
	attrs := cached.Attributes()
	if c.opts.ChangesOnly {
		if prev, ok := c.col.previousAttributes(key); ok {
			ch := diff(prev, attrs)
			if len(ch.Added) == 0 && len(ch.Changed) == 0 {
				return cached, nil
			}
			attrs = Attributes{}
			for k, v := range ch.Added {
				attrs[k] = v
			}
			for k, v := range ch.Changed {
				attrs[k] = v
			}
		}
	}
	defer ds.observe(c.def.Name, "save", time.Now(), &err)
	return ds.update(ctx, c, id, attrs)
}

// Destroy removes id through the adapter and ejects it from the store.
func (ds *DataStore) Destroy(ctx context.Context, resourceName string, id any, opts ...CallOption) (err error) {
	const prefix = "DS.destroy(resourceName, id[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts, checkID(prefix, id))
	if err != nil {
		return err
	}
	defer ds.observe(c.def.Name, "destroy", time.Now(), &err)

	key, _ := KeyOf(id)
	var payload any = Attributes{c.def.IDAttribute: id}
	if cached, ok := c.col.get(key); ok {
		payload = cached
	}
	payload, err = RunPipeline(ctx, c.def, destroyStages, payload)
	if err != nil {
		return err
	}
	ds.dispatching(c, "destroy")
	if err := c.adapter.Destroy(ctx, c.def, id, c.opts); err != nil {
		return err
	}
	if _, err := runHook(ctx, c.def, StageAfterDestroy, payload); err != nil {
		return err
	}
	if _, err := ds.ejectOne(ctx, c.def, c.col, key); err != nil {
		return unhandled(err)
	}
	return nil
}

// DestroyAll removes every item matching params through the adapter, then ejects
// the matching cached records. Nil params select everything.
func (ds *DataStore) DestroyAll(ctx context.Context, resourceName string, params Params, opts ...CallOption) (err error) {
	const prefix = "DS.destroyAll(resourceName, params[, options]): "
	c, err := ds.prepare(prefix, resourceName, opts)
	if err != nil {
		return err
	}
	defer ds.observe(c.def.Name, "destroyAll", time.Now(), &err)

	query, err := ds.transformQuery(ctx, c, params)
	if err != nil {
		return err
	}
	ds.dispatching(c, "destroyAll")
	if err := c.adapter.DestroyAll(ctx, c.def, query, c.opts); err != nil {
		return err
	}
	if _, err := ds.ejectMatching(ctx, c.def, c.col, params); err != nil {
		return unhandled(err)
	}
	return nil
}

func (ds *DataStore) dispatching(c *call, op string) {
	if ds.logger != nil {
		ds.logger.Debug("dispatching to adapter", "resource", c.def.Name, "operation", op, "adapter", c.adapterName)
	}
}

// runWithCopy runs stages on a private copy so hooks never mutate the caller's map.
func (ds *DataStore) runWithCopy(ctx context.Context, c *call, stages []Stage, attrs Attributes) (any, error) {
	own, err := cloneAttributes(attrs)
	if err != nil {
		return nil, unhandled(err)
	}
	return RunPipeline(ctx, c.def, stages, own)
}

func (ds *DataStore) transformQuery(ctx context.Context, c *call, params Params) (Params, error) {
	out, err := RunPipeline(ctx, c.def, queryStages, params)
	if err != nil {
		return nil, err
	}
	query, ok := coerceParams(out)
	if !ok {
		return nil, illegalArgument(c.prefix, "params: Must be an object!", map[string]any{"actual": fmt.Sprintf("%T", out)})
	}
	return query, nil
}

// commitOne turns a deserialized response into the call result. fallbackID fills in
// the primary key when the response omits it.
func (ds *DataStore) commitOne(ctx context.Context, c *call, data any, fallbackID any) (*Record, error) {
	attrs, ok := coerceAttributes(data)
	if !ok {
		return nil, &UnhandledError{Err: fmt.Errorf("%sresponse: expected an object, got %T", c.prefix, data)}
	}
	if _, present := attrs[c.def.IDAttribute]; !present && fallbackID != nil {
		withID := make(Attributes, len(attrs)+1)
		for k, v := range attrs {
			withID[k] = v
		}
		withID[c.def.IDAttribute] = fallbackID
		attrs = withID
	}

	if !c.opts.CacheResponse {
		return ds.detached(c, attrs)
	}
	rec, err := ds.injectOne(ctx, c.prefix, c.def, c.col, attrs, true)
	if err != nil {
		return nil, asUnhandled(err)
	}
	return rec, nil
}

func (ds *DataStore) commitMany(ctx context.Context, c *call, data any) ([]*Record, error) {
	items, ok := coerceList(data)
	if !ok {
		return nil, &UnhandledError{Err: fmt.Errorf("%sresponse: expected a list of objects, got %T", c.prefix, data)}
	}
	if !c.opts.CacheResponse {
		out := make([]*Record, 0, len(items))
		for _, item := range items {
			rec, err := ds.detached(c, item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}
	recs, err := ds.injectMany(ctx, c.prefix, c.def, c.col, items, true)
	if err != nil {
		return nil, asUnhandled(err)
	}
	return recs, nil
}

func (ds *DataStore) detached(c *call, attrs Attributes) (*Record, error) {
	own, err := cloneAttributes(attrs)
	if err != nil {
		return nil, unhandled(err)
	}
	key, id, _ := c.def.primaryKey(own)
	rec := newRecord(c.def.Name, key, id, own)
	rec.detached = true
	return rec, nil
}
