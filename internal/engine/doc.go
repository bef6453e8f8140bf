// Package engine implements dirty propagation over a graph.Graph.
//
// Every mutation (value set, connection made, connection broken) runs one
// synchronous propagation pass before the mutating call returns.
//
// Pass Flow:
// 1. The mutation is validated; invalid targets fail before anything changes
// 2. The graph is mutated
// 3. OnSet fires for the direct target of a value set or a disconnect
// 4. The trigger leaf seeds a FIFO queue; each popped slot is notified once
// 5. Input leaves consult their node's declarer, output leaves follow their
//    connections, and every notified slot enqueues its compound parent
// 6. OnPass receives a PassRecord summarising the pass
//
// A protocol violation aborts the pass. Notifications already delivered
// stand; there is no rollback.
//
// CONCURRENCY:
//
// The engine holds one lock around "mutate + propagate", so concurrent
// callers are serialized. Subscribers run under that lock and must not call
// back into the engine.
//
// DETERMINISM:
//
// Notification order depends only on graph topology, slot declaration
// order, connection order and declarer return order. Each pass is stamped
// with a seq from Clock and a token from a PassTokenGenerator.
package engine
