package core

import (
	"context"
	"reflect"
)

// Changes describes how a record differs from its last saved snapshot.
// Only top-level attributes are compared.
type Changes struct {
	Added   Attributes `json:"added"`
	Changed Attributes `json:"changed"`
	Removed Attributes `json:"removed"`
}

// Empty reports whether there is no difference at all.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

func notInStore(prefix string) error {
	return &RuntimeError{Message: prefix + "id: " + ErrNotInStore.Error(), Err: ErrNotInStore}
}

// lookup validates a (resource, id) accessor call.
func (ds *DataStore) lookup(prefix, resourceName string, id any) (*Definition, *Collection, string, error) {
	def, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, nil, "", err
	}
	if err := checkID(prefix, id)(); err != nil {
		return nil, nil, "", err
	}
	key, _ := KeyOf(id)
	return def, col, key, nil
}

// Get returns the live record cached under id.
// A missing record is a RuntimeError wrapping ErrNotInStore.
func (ds *DataStore) Get(resourceName string, id any) (*Record, error) {
	const prefix = "DS.get(resourceName, id): "
	_, col, key, err := ds.lookup(prefix, resourceName, id)
	if err != nil {
		return nil, err
	}
	rec, ok := col.get(key)
	if !ok {
		return nil, notInStore(prefix)
	}
	return rec, nil
}

// GetAll returns the cached records with the given ids, skipping the ones not cached.
// Without ids it returns every cached record in insertion order.
func (ds *DataStore) GetAll(resourceName string, ids ...any) ([]*Record, error) {
	const prefix = "DS.getAll(resourceName[, ids]): "
	_, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return col.all(), nil
	}
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if err := checkID(prefix, id)(); err != nil {
			return nil, err
		}
		key, _ := KeyOf(id)
		if rec, ok := col.get(key); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Filter evaluates params against the cached records of a resource.
func (ds *DataStore) Filter(resourceName string, params Params) ([]*Record, error) {
	const prefix = "DS.filter(resourceName[, params]): "
	_, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	return filterRecords(ds.matcher, params, col.all())
}

// LastSaved returns the unix millisecond timestamp of the last confirmed save of id.
// An id never seen before reads as 0.
func (ds *DataStore) LastSaved(resourceName string, id any) (int64, error) {
	const prefix = "DS.lastSaved(resourceName, id): "
	_, col, key, err := ds.lookup(prefix, resourceName, id)
	if err != nil {
		return 0, err
	}
	return col.lastSaved(key), nil
}

// LastModified returns the unix millisecond timestamp of the last change of id in the store.
// An id never seen before reads as 0.
func (ds *DataStore) LastModified(resourceName string, id any) (int64, error) {
	const prefix = "DS.lastModified(resourceName, id): "
	_, col, key, err := ds.lookup(prefix, resourceName, id)
	if err != nil {
		return 0, err
	}
	return col.lastModified(key), nil
}

// Previous returns a copy of the attributes of id as of its last confirmed save,
// or nil if it was never saved.
func (ds *DataStore) Previous(resourceName string, id any) (Attributes, error) {
	const prefix = "DS.previous(resourceName, id): "
	_, col, key, err := ds.lookup(prefix, resourceName, id)
	if err != nil {
		return nil, err
	}
	snap, ok := col.previousAttributes(key)
	if !ok {
		return nil, nil
	}
	out, err := cloneAttributes(snap)
	if err != nil {
		return nil, unhandled(err)
	}
	return out, nil
}

// Changes diffs the cached record against its last saved snapshot.
func (ds *DataStore) Changes(resourceName string, id any) (Changes, error) {
	const prefix = "DS.changes(resourceName, id): "
	_, col, key, err := ds.lookup(prefix, resourceName, id)
	if err != nil {
		return Changes{}, err
	}
	rec, ok := col.get(key)
	if !ok {
		return Changes{}, notInStore(prefix)
	}
	prev, _ := col.previousAttributes(key)
	return diff(prev, rec.Attributes()), nil
}

// HasChanges reports whether the cached record differs from its last saved snapshot.
func (ds *DataStore) HasChanges(resourceName string, id any) (bool, error) {
	c, err := ds.Changes(resourceName, id)
	if err != nil {
		return false, err
	}
	return !c.Empty(), nil
}

// Modify merges attrs into a cached record without any hook or adapter call.
// It advances the modified timestamp only.
func (ds *DataStore) Modify(ctx context.Context, resourceName string, id any, attrs Attributes) (*Record, error) {
	const prefix = "DS.modify(resourceName, id, attrs): "
	def, col, key, err := ds.lookup(prefix, resourceName, id)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, illegalArgument(prefix, "attrs: Must be an object!", nil)
	}
	if v, ok := attrs[def.IDAttribute]; ok {
		if k, _ := KeyOf(v); k != key {
			return nil, illegalArgument(prefix, "attrs: The primary key cannot be changed!", nil)
		}
	}
	rec, ok := col.get(key)
	if !ok {
		return nil, notInStore(prefix)
	}
	own, err := cloneAttributes(attrs)
	if err != nil {
		return nil, unhandled(err)
	}

	unlock, err := col.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	changed := rec.merge(own)
	if changed {
		col.touch(key)
	}
	unlock()

	if changed {
		ds.emit(EventModify, def.Name, key)
	}
	return rec, nil
}

func diff(prev, cur Attributes) Changes {
	c := Changes{Added: Attributes{}, Changed: Attributes{}, Removed: Attributes{}}
	for k, v := range cur {
		old, ok := prev[k]
		switch {
		case !ok:
			c.Added[k] = v
		case !reflect.DeepEqual(old, v):
			c.Changed[k] = v
		}
	}
	for k, v := range prev {
		if _, ok := cur[k]; !ok {
			c.Removed[k] = v
		}
	}
	return c
}
