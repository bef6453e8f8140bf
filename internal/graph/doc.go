// Package graph implements the slot hierarchy of a node graph and the
// dependency declaration protocol nodes use to describe which of their
// slots a changed input invalidates.
//
// # Slot Hierarchy
//
// Slots live in a per-graph arena and are addressed by stable SlotID
// indexes. Each slot records its owning node, its parent (NoSlot for a
// node's top-level slots) and its ordered children. A slot with children is
// compound: it is purely structural, carries no value and can be neither
// set nor connected. Only leaf slots hold values and connections.
//
// Parent links are lookups, never ownership. Removing a node tombstones its
// slots; a SlotID is never reused within a graph.
//
// # Dependency Declaration
//
// Every node holds a DependencyDeclarer. Graph.Affects is the only way the
// declarer is queried: it rejects compound and foreign arguments before the
// call and compound, foreign or input results after it, returning a
// *ProtocolViolationError. Declarers must enumerate leaf slots explicitly.
//
// # Concurrency
//
// A Graph is not safe for concurrent mutation. The propagation engine
// serializes "mutate + propagate" for callers that share a graph.
package graph
