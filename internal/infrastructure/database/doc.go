// Package database provides SQLite connectivity for the run-history
// store.
//
// This package manages:
//   - Database connection with WAL mode so the status API can read
//     history while the supervisor records it
//   - Schema migrations embedded into the binary
//   - Connection lifecycle and health checks
//
// SQLite is a single-writer database, so the pool is pinned to one
// connection; the busy timeout absorbs the brief contention that
// remains. The database file is created on first use with permissions
// 0600 and all queries use parameterised statements.
//
// Usage:
//
//	db, err := database.Open(cfg.History)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
