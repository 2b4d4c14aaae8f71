// Package database provides the SQLite run ledger of the scraper.
//
// The ledger stores:
//   - One row per run with its final counters
//   - One row per attempted record with its outcome and failure kind
//
// It is an audit trail, not a cache: nothing in it is read back to skip or
// resume records. The spreadsheet stays the only output a run produces.
//
// Design decision: We use SQLite via modernc.org/sqlite because the ledger
// is a single local file and the pure-Go driver keeps the binary CGO-free.
package database
