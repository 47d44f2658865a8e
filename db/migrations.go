package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateAccountsIndices = `
		CREATE INDEX IF NOT EXISTS idx_accounts_tenant ON accounts(tenant);
		CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	`

	sqlCreateSyncRunsIndices = `
		CREATE INDEX IF NOT EXISTS idx_sync_runs_tenant ON sync_runs(tenant);
		CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at DESC);
	`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateAccountsIndices); err != nil {
			log.Printf("Warning: Failed to create accounts indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateSyncRunsIndices); err != nil {
			log.Printf("Warning: Failed to create sync_runs indices: %v", err)
		}

		db.extendExistingTables(tx)
		return nil
	})
}

func (db *DB) extendExistingTables(tx *sql.Tx) {
	// Columns added after the first release (errors mean they exist already)
	if !db.hasColumn(tx, "sync_runs", "reconciled_from") {
		if _, err := tx.Exec("ALTER TABLE sync_runs ADD COLUMN reconciled_from TEXT"); err != nil {
			log.Printf("Warning: Failed to add sync_runs.reconciled_from: %v", err)
		}
	}
	if !db.hasColumn(tx, "sync_runs", "display_name") {
		if _, err := tx.Exec("ALTER TABLE sync_runs ADD COLUMN display_name TEXT"); err != nil {
			log.Printf("Warning: Failed to add sync_runs.display_name: %v", err)
		}
	}
}

func (db *DB) hasColumn(tx *sql.Tx, table, column string) bool {
	rows, err := tx.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}
