package core

import (
	"context"
	"fmt"
)

// Inject merges attrs into the store and returns the canonical record.
// If a record with the same primary key is cached, it is updated in place and the
// same pointer is returned; otherwise a new record is created.
func (ds *DataStore) Inject(ctx context.Context, resourceName string, attrs Attributes) (*Record, error) {
	const prefix = "DS.inject(resourceName, attrs): "
	def, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, illegalArgument(prefix, "attrs: Must be an object!", nil)
	}
	return ds.injectOne(ctx, prefix, def, col, attrs, false)
}

// InjectAll injects every item in order and stops at the first failure.
func (ds *DataStore) InjectAll(ctx context.Context, resourceName string, items []Attributes) ([]*Record, error) {
	const prefix = "DS.inject(resourceName, attrs): "
	def, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if item == nil {
			return nil, illegalArgument(prefix, fmt.Sprintf("attrs[%d]: Must be an object!", i), nil)
		}
	}
	return ds.injectMany(ctx, prefix, def, col, items, false)
}

func (ds *DataStore) injectMany(ctx context.Context, prefix string, def *Definition, col *Collection, items []Attributes, saved bool) ([]*Record, error) {
	out := make([]*Record, 0, len(items))
	for _, item := range items {
		rec, err := ds.injectOne(ctx, prefix, def, col, item, saved)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// injectOne runs beforeInject, commits the item and runs afterInject.
// With saved set, the commit also snapshots the merged attributes as the
// previous attributes and advances the saved timestamp, under the same lock.
func (ds *DataStore) injectOne(ctx context.Context, prefix string, def *Definition, col *Collection, attrs Attributes, saved bool) (*Record, error) {
	out, err := runHook(ctx, def, StageBeforeInject, attrs)
	if err != nil {
		return nil, err
	}
	attrs, ok := coerceAttributes(out)
	if !ok {
		return nil, illegalArgument(prefix, "attrs: Must be an object!", map[string]any{"actual": fmt.Sprintf("%T", out)})
	}
	key, id, ok := def.primaryKey(attrs)
	if !ok {
		return nil, illegalArgument(prefix, fmt.Sprintf("attrs: Must contain the property specified by `idAttribute` (%s)!", def.IDAttribute), nil)
	}
	own, err := cloneAttributes(attrs)
	if err != nil {
		return nil, unhandled(err)
	}

	unlock, err := col.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	rec, created, changed := col.upsert(key, id, own)
	if saved {
		col.markSaved(key, rec.Attributes())
	}
	unlock()

	switch {
	case created:
		ds.emit(EventCreate, def.Name, key)
	case changed:
		ds.emit(EventModify, def.Name, key)
	}
	if saved {
		ds.emit(EventSave, def.Name, key)
	}
	if ds.logger != nil {
		ds.logger.Debug("record injected", "resource", def.Name, "id", key, "created", created, "changed", changed, "saved", saved)
	}

	if _, err := runHook(ctx, def, StageAfterInject, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Eject removes the record identified by id from the store and returns it.
// Ejecting an id that is not cached is a no-op returning nil.
func (ds *DataStore) Eject(ctx context.Context, resourceName string, id any) (*Record, error) {
	const prefix = "DS.eject(resourceName, id): "
	def, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	if err := checkID(prefix, id)(); err != nil {
		return nil, err
	}
	key, _ := KeyOf(id)
	return ds.ejectOne(ctx, def, col, key)
}

// EjectAll removes every cached record matching params. Nil params eject everything.
func (ds *DataStore) EjectAll(ctx context.Context, resourceName string, params Params) ([]*Record, error) {
	const prefix = "DS.ejectAll(resourceName[, params]): "
	def, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	return ds.ejectMatching(ctx, def, col, params)
}

func (ds *DataStore) ejectMatching(ctx context.Context, def *Definition, col *Collection, params Params) ([]*Record, error) {
	matched, err := filterRecords(ds.matcher, params, col.all())
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(matched))
	for _, rec := range matched {
		ejected, err := ds.ejectOne(ctx, def, col, rec.Key())
		if err != nil {
			return out, err
		}
		if ejected != nil {
			out = append(out, ejected)
		}
	}
	return out, nil
}

func (ds *DataStore) ejectOne(ctx context.Context, def *Definition, col *Collection, key string) (*Record, error) {
	rec, ok := col.get(key)
	if !ok {
		return nil, nil
	}
	if _, err := runHook(ctx, def, StageBeforeEject, rec); err != nil {
		return nil, err
	}

	unlock, err := col.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	removed, ok := col.remove(key)
	unlock()
	if !ok {
		return nil, nil
	}

	ds.emit(EventEject, def.Name, key)
	if ds.logger != nil {
		ds.logger.Debug("record ejected", "resource", def.Name, "id", key)
	}
	if _, err := runHook(ctx, def, StageAfterEject, removed); err != nil {
		return nil, err
	}
	return removed, nil
}

// coerceAttributes accepts the shapes a hook or a deserializer may reasonably return.
func coerceAttributes(v any) (Attributes, bool) {
	switch t := v.(type) {
	case Attributes:
		return t, t != nil
	case map[string]any:
		return Attributes(t), t != nil
	case *Record:
		if t == nil {
			return nil, false
		}
		return t.Attributes(), true
	default:
		return nil, false
	}
}

// coerceList is the list counterpart of coerceAttributes. A nil response is an empty list.
func coerceList(v any) ([]Attributes, bool) {
	switch t := v.(type) {
	case nil:
		return []Attributes{}, true
	case []Attributes:
		return t, true
	case []map[string]any:
		out := make([]Attributes, len(t))
		for i, m := range t {
			out[i] = Attributes(m)
		}
		return out, true
	case []*Record:
		out := make([]Attributes, 0, len(t))
		for _, r := range t {
			a, ok := coerceAttributes(r)
			if !ok {
				return nil, false
			}
			out = append(out, a)
		}
		return out, true
	case []any:
		out := make([]Attributes, 0, len(t))
		for _, item := range t {
			a, ok := coerceAttributes(item)
			if !ok {
				return nil, false
			}
			out = append(out, a)
		}
		return out, true
	default:
		return nil, false
	}
}

// coerceParams accepts the shapes a queryTransform hook may return.
func coerceParams(v any) (Params, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case Params:
		return t, true
	case map[string]any:
		return Params(t), true
	default:
		return nil, false
	}
}
