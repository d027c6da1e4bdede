// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("checkpointer", cp.Stop)
//	h.OnShutdown("store", func(context.Context) error { return store.Close() })
//	err := h.Wait(ctx) // returns after SIGINT, SIGTERM, Trigger or ctx done
package shutdown
