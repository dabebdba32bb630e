// Package database provides SQLite connectivity for mC Connect Core.
//
// The database holds the per-table balances read on every display render,
// the device-to-table assignments used at startup, the menu items shown as
// promotions, and the device event log.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package and are
// additive only: each YYYYMMDD_HHMMSS_name.up.sql file runs once, in
// version order, inside its own transaction.
package database
