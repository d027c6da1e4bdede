// Package objspace multiplexes many independently persisted entities over
// one shared checkpoint store.
//
// Layout in the store:
//
//	state/index         key <id> -> Descriptor of entity <id>
//	state/item/<id>/<C> category C of entity <id>
//
// Entities only ever see their own partition: the reader and writer handed
// to Entity.Load and Entity.Save rewrite every category C to
// state/item/<id>/C and refuse whole-checkpoint operations with
// domain.ErrNotSupported.
//
// A Space persists its registry on Save and rebuilds it on Load, resolving
// each Descriptor to a constructor through a Kinds registry. OnSaved must be
// called only after the checkpoint writer's Commit succeeded; the Space
// never acknowledges a save on its own.
package objspace
