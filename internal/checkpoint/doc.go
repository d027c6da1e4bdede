// Package checkpoint drives the save lifecycle of an object space against a
// checkpoint store.
//
// A Checkpointer runs one lifecycle at a time: it begins a writer, asks the
// space to stage its dirty entities, commits the writer and acknowledges the
// space only when the commit succeeded. A failed checkpoint is rolled back and
// the next one is forced to be full, so state captured by the failed attempt
// is written again.
//
// Usage:
//
//	cp := checkpoint.New(space, store, checkpoint.DefaultConfig())
//	if err := cp.Recover(ctx); err != nil {
//	    return err
//	}
//	cp.Start()
//	defer cp.Stop(ctx)
package checkpoint
