// Package todostore is the SQLite-backed todos.Source.
//
// Effects of the todos store domain call it from their own goroutines,
// so all methods are safe for concurrent use.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single open connection: SQLite allows one writer
//
// Titles are NFC normalized on write, so the stored form of a todo may
// differ from the one that was saved; SaveTodo returns the stored form.
// Reads are ordered by id ASC.
package todostore
