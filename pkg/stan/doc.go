// Package stan provides a small reactive state container.
//
// A Store maps named fields to values. Writes go through generated actions,
// are compared with the current value using deep equality, and notify only
// the listeners whose subscription names the written field. Computed fields
// are derived from other fields and recompute automatically; their
// dependencies are discovered by recording which fields the derivation reads.
//
// # Fields
//
// Field kinds are declared explicitly:
//
//	store, err := stan.New(stan.Fields{
//	    stan.Literal("count", 0),
//	    stan.Computed("double", func(s stan.State) any {
//	        return stan.Value[int](s, "count") * 2
//	    }),
//	    stan.Synchronized("user", files.Field("john")),
//	})
//
// Literal fields hold plain values. Computed fields have no action. A
// Synchronized field is seeded from its Synchronizer and pushes every
// committed value back to it.
//
// # Actions
//
// Each writable field gets an action named "set" + the field name with its
// first letter upper-cased. An action accepts either the new value or an
// Updater:
//
//	actions := store.Actions()
//	actions["setCount"](5)
//	actions["setCount"](stan.Update(func(n int) int { return n + 1 }))
//
// # Subscriptions
//
//	dispose := store.Subscribe(func(v any) {
//	    fmt.Println("double is", v)
//	}, "double")
//	defer dispose()
//
// Listeners subscribed to a single field receive its current value.
// Listeners subscribed to several fields receive nil and read the store.
//
// # Batching
//
// BatchUpdates defers notification until the callback returns:
//
//	store.BatchUpdates(func() {
//	    actions["setA"](1)
//	    actions["setB"](2)
//	})  // listeners of a, b and a+b run once each
//
// Computed fields that depend on a batched write are recomputed once when the
// batch ends, before any listener runs. Outside a batch they are recomputed
// before the listeners of the write that changed them.
//
// # Goroutines
//
// A Store is single-writer: all of its methods must be called from one
// goroutine. Deferred synchronizer reads run in the background and hand
// their results back through ApplyPending, Settle, or a dispatcher installed
// with WithDispatcher.
package stan
