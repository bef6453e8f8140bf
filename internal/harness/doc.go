// Package harness runs propagation scenarios as executable contract tests.
//
// A scenario compiles CUE node types, instantiates nodes from them, and
// applies a sequence of mutations through the engine. Each step may state
// the set and dirtied notifications it must produce, in order; assertions
// then check the whole trace, the final graph and the pass journal.
//
// # Scenario Format
//
//	name: chain_update
//	description: "Setting N1.op2 re-dirties the downstream adder"
//	types:
//	  - types/adder.cue
//	nodes:
//	  - {name: N1, type: Adder}
//	  - {name: N2, type: Adder}
//	setup:
//	  - {connect: N2.op1, from: N1.sum}
//	steps:
//	  - set: N1.op2
//	    value: 3
//	    expect:
//	      set: [N1.op2]
//	      dirtied: [N1.op2, N1.sum, N2.op1, N2.sum]
//	  - disconnect: N2.op1
//	    expect:
//	      dirtied: [N2.op1, N2.sum]
//	assertions:
//	  - {type: dirtied_count, slot: N2.sum, count: 1}
//	  - {type: final_value, slot: N1.op2, value: 3}
//
// # Step Operations
//
//   - set / value: assign a value to a leaf input
//   - reset: restore a leaf input's default
//   - connect / from: connect a leaf input to a source slot
//   - connect_leaves / from: pair the leaves of two compound slots
//   - disconnect: clear a leaf input's connection
//   - remove: delete a node and sever its connections
//
// # Assertion Types
//
//   - dirtied_contains: the slot was dirtied at least once
//   - dirtied_order: first dirtied notifications appear in the given order
//   - dirtied_count: the slot was dirtied exactly count times
//   - final_value: the slot's resolved value after all steps
//   - journal_count: number of journaled passes that dirtied the slot
//
// # Deterministic Testing
//
// Every run uses a fresh graph, a logical clock starting at zero and pass
// tokens "<token_prefix>-1", "<token_prefix>-2", ... so traces are
// identical across runs and can be compared against golden files.
package harness
