package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/util"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

const maxBusyRetries = 5

const (
	//Accounts
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
                        id uuid NOT NULL PRIMARY KEY,
                        tenant varchar(255) NOT NULL,
                        provider varchar(50) NOT NULL,
                        access_token text NOT NULL,
                        remote_user_id varchar(100),
                        username varchar(100),
                        expires_at timestamp,
                        created_at timestamp default current_timestamp,
                        updated_at timestamp default current_timestamp,
                        UNIQUE(tenant, provider)
                        )`
	sqlUpsertAccount = `INSERT INTO accounts(id, tenant, provider, access_token, remote_user_id, username, expires_at, created_at, updated_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
                        ON CONFLICT(tenant, provider) DO UPDATE SET
                            access_token = excluded.access_token,
                            remote_user_id = excluded.remote_user_id,
                            expires_at = excluded.expires_at,
                            updated_at = excluded.updated_at`
	sqlSelectAccount         = `SELECT id, tenant, provider, access_token, remote_user_id, username, expires_at, created_at, updated_at FROM accounts WHERE tenant = ? AND provider = ?`
	sqlUpdateAccountUsername = `UPDATE accounts SET username = ?, updated_at = ? WHERE id = ?`
	sqlDeleteAccount         = `DELETE FROM accounts WHERE tenant = ? AND provider = ?`

	//Sync runs
	sqlCreateSyncRunsTable = `CREATE TABLE IF NOT EXISTS sync_runs(
                        id uuid NOT NULL PRIMARY KEY,
                        account_id uuid,
                        tenant varchar(255) NOT NULL,
                        username varchar(100),
                        status varchar(20) NOT NULL,
                        posts_fetched int default 0,
                        posts_synced int default 0,
                        posts_skipped int default 0,
                        message text,
                        started_at timestamp NOT NULL,
                        finished_at timestamp NOT NULL
                        )`
	sqlInsertSyncRun = `INSERT INTO sync_runs(id, account_id, tenant, username, display_name, status, posts_fetched, posts_synced, posts_skipped, message, reconciled_from, started_at, finished_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectSyncRunsByTenant = `SELECT id, account_id, tenant, username, display_name, status, posts_fetched, posts_synced, posts_skipped, message, reconciled_from, started_at, finished_at FROM sync_runs
                                 WHERE tenant = ?
                                 ORDER BY started_at DESC
                                 LIMIT ?`
	sqlSelectSyncRunById = `SELECT id, account_id, tenant, username, display_name, status, posts_fetched, posts_synced, posts_skipped, message, reconciled_from, started_at, finished_at FROM sync_runs WHERE id = ?`
)

// Open opens the sqlite database at dsn and creates the schema.
func Open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	} else {
		log.Printf("Database journal mode: %s", journalMode)
	}
	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")

	database := &DB{db: sqlDB}
	if err := database.CreateDB(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return database, nil
}

// GetDB returns the process-wide database, opening it on first use at the
// resolved location of the configured file.
func GetDB(conf *util.AppConfig) *DB {
	dbOnce.Do(func() {
		path := util.ResolveFilePath(conf.Conf.Database)
		log.Printf("Opening database at %s", path)
		database, err := Open(path)
		if err != nil {
			panic(err)
		}
		dbInstance = database
	})

	return dbInstance
}

func (db *DB) Close() error {
	return db.db.Close()
}

// CreateDB creates the database.
func (db *DB) CreateDB() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateAccountsTable); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlCreateSyncRunsTable); err != nil {
			return err
		}
		return nil
	})
}

// UpsertAccount stores the credential of a linked remote account. The stored
// username is left alone on conflict; only a sync run may change it.
func (db *DB) UpsertAccount(acc *domain.Account) error {
	if acc.Id == uuid.Nil {
		acc.Id = uuid.New()
	}
	if acc.Provider == "" {
		acc.Provider = domain.DefaultProvider
	}
	now := time.Now()
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertAccount,
			acc.Id.String(),
			acc.Tenant,
			acc.Provider,
			acc.AccessToken,
			acc.RemoteUserId,
			acc.Username,
			nullTime(acc.ExpiresAt),
			now,
			now,
		)
		return err
	})
}

// ReadAccount returns the account linked for tenant and provider, or
// sql.ErrNoRows.
func (db *DB) ReadAccount(tenant, provider string) (*domain.Account, error) {
	row := db.db.QueryRow(sqlSelectAccount, tenant, provider)
	var acc domain.Account
	var idStr string
	var remoteUserId, username sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(
		&idStr,
		&acc.Tenant,
		&acc.Provider,
		&acc.AccessToken,
		&remoteUserId,
		&username,
		&expiresAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.Id, _ = uuid.Parse(idStr)
	acc.RemoteUserId = remoteUserId.String
	acc.Username = username.String
	if expiresAt.Valid {
		acc.ExpiresAt = expiresAt.Time
	}
	return &acc, nil
}

func (db *DB) UpdateAccountUsername(id uuid.UUID, username string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlUpdateAccountUsername, username, time.Now(), id.String())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (db *DB) DeleteAccount(tenant, provider string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteAccount, tenant, provider)
		return err
	})
}

func (db *DB) CreateSyncRun(run *domain.SyncRun) error {
	if run.Id == uuid.Nil {
		run.Id = uuid.New()
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertSyncRun,
			run.Id.String(),
			run.AccountId.String(),
			run.Tenant,
			run.Username,
			run.DisplayName,
			string(run.Status),
			run.PostsFetched,
			run.PostsSynced,
			run.PostsSkipped,
			run.Message,
			run.ReconciledFrom,
			run.StartedAt,
			run.FinishedAt,
		)
		return err
	})
}

func (db *DB) ReadSyncRuns(tenant string, limit int) ([]domain.SyncRun, error) {
	rows, err := db.db.Query(sqlSelectSyncRunsByTenant, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return runs, err
		}
		runs = append(runs, *run)
	}
	if err = rows.Err(); err != nil {
		return runs, err
	}
	return runs, nil
}

// ReadSyncRun returns sql.ErrNoRows when no run has the id.
func (db *DB) ReadSyncRun(id uuid.UUID) (*domain.SyncRun, error) {
	return scanSyncRun(db.db.QueryRow(sqlSelectSyncRunById, id.String()))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row scanner) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var idStr, accountIdStr string
	var username, displayName, message, reconciledFrom sql.NullString
	var status string
	if err := row.Scan(&idStr, &accountIdStr, &run.Tenant, &username, &displayName, &status, &run.PostsFetched, &run.PostsSynced, &run.PostsSkipped, &message, &reconciledFrom, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	run.Id, _ = uuid.Parse(idStr)
	run.AccountId, _ = uuid.Parse(accountIdStr)
	run.Username = username.String
	run.DisplayName = displayName.String
	run.Message = message.String
	run.ReconciledFrom = reconciledFrom.String
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// wrapTransaction runs the given function within a transaction, starting over
// with a fresh transaction while sqlite reports SQLITE_BUSY.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt <= maxBusyRetries; attempt++ {
		err = db.runTransaction(f)
		if !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func (db *DB) runTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	if err = f(tx); err != nil {
		tx.Rollback()
		if !isBusy(err) {
			log.Printf("error in transaction: %s", err)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		log.Printf("error committing transaction: %s", err)
		return err
	}
	return nil
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlitelib.SQLITE_BUSY
}
