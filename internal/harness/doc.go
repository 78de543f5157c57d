// Package harness runs store scenarios: YAML files that dispatch actions
// into a domain store and assert on the resulting action trace and final
// cell values.
//
// # Scenario Format
//
//	name: todos_add
//	description: "AddTodo is persisted and confirmed"
//	domain: todos
//	seed:
//	  - { user_id: 1, id: 123, title: "Todo A" }
//	steps:
//	  - dispatch: todos/load
//	  - dispatch: todos/add
//	    payload: { user_id: 2, id: 444, title: "Todo B" }
//	assertions:
//	  - type: trace_contains
//	    action: todos/added
//	    args: { id: 444 }
//	  - type: trace_order
//	    actions: [todos/load, todos/loaded, todos/add, todos/added]
//	  - type: trace_count
//	    action: rxstore/failed
//	    count: 0
//	  - type: final_state
//	    cell: userTodoIds
//	    expect: { 2: [444] }
//
// # Assertion Types
//
//   - trace_contains: an action of the type appears with matching payload fields (subset match)
//   - trace_order: the actions first appear in the given order
//   - trace_count: the action appears exactly N times
//   - final_state: a cell's final value matches (maps by subset, everything else exactly)
//
// # Deterministic Runs
//
// Each scenario runs against a fresh store with sequential flow tokens
// ("flow-1", "flow-2", ...) and, for the todos domain, a fresh in-memory
// SQLite database. The store settles after every step, so effect
// follow-ups land in the trace before the next dispatch and traces are
// identical across runs.
package harness
