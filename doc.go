// Package datastore is the Composition Root of the record store.
//
// It connects the core engine (resource registry, collection store, injector,
// lifecycle pipelines and CRUD drivers) with the pluggable backends that perform
// the actual remote operations, following the Hexagonal Architecture pattern.
//
// Features:
//
//   - **Stable identity**: a record is one live object per (resource, id); injecting
//     server data merges into it in place, so every holder observes the change.
//   - **Lifecycle hooks**: beforeValidate, validate, afterValidate, beforeUpdate,
//     afterUpdate and friends run in a fixed order around every adapter call.
//   - **Change tracking**: saved and modified timestamps plus a snapshot of the
//     attributes as of the last confirmed save.
//   - **Pluggable adapters**: any backend implementing `core.Adapter`; an in-memory
//     one ships in `pkg/adapters/memory`.
//   - **Typed access**: `NewResource[T]` maps records onto Go structs.
//
// Usage:
//
//	ds, err := datastore.New(
//		datastore.WithAdapter("memory", memory.New()),
//		datastore.WithDefinitions(core.Definition{Name: "post"}),
//	)
//
//	// Update a record and cache the server response
//	post, err := ds.Update(ctx, "post", 8, core.Attributes{"age": 27})
package datastore
