package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/atomicstack/shell-script-manager/internal/model"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteStore implements Repository and Transactor on top of database/sql.
type SQLiteStore struct {
	db   *sql.DB
	tx   *sql.Tx
	q    queryer
	path string
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Transactor = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required: %w", ErrInvalidArgument)
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises
	// writers the way SQLite wants anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, q: db, path: path}, nil
}

// NewSQLiteStore wraps an already opened, already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, q: db}
}

// Path returns the file backing the store, or MemoryPath.
func (s *SQLiteStore) Path() string {
	return s.path
}

// DataVersion returns SQLite's data_version for the store's connection. The
// value changes only when another connection commits to the file.
func (s *SQLiteStore) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.q.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, wrap("data version", err)
	}
	return v, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil || s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside a single transaction. Nested calls join the outer one.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin", err)
	}
	scoped := &SQLiteStore{db: s.db, tx: tx, q: tx, path: s.path}
	if err := fn(scoped); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit", err)
	}
	return nil
}

func (s *SQLiteStore) CreateFolder(ctx context.Context, name string, ordering int) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, wrap("create folder", fmt.Errorf("folder name required: %w", ErrInvalidArgument))
	}
	res, err := s.q.ExecContext(ctx, `INSERT INTO scripts_folder (name, ordering) VALUES (?, ?)`, name, ordering)
	if err != nil {
		return 0, wrap("create folder", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create folder", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetAllFolders(ctx context.Context) ([]model.Folder, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, ordering FROM scripts_folder ORDER BY ordering, id`)
	if err != nil {
		return nil, wrap("get all folders", err)
	}
	defer rows.Close()

	var folders []model.Folder
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Ordering); err != nil {
			return nil, wrap("get all folders", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("get all folders", err)
	}
	return folders, nil
}

func (s *SQLiteStore) GetFolderCount(ctx context.Context) (int, error) {
	var count int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM scripts_folder`).Scan(&count); err != nil {
		return 0, wrap("get folder count", err)
	}
	return count, nil
}

func (s *SQLiteStore) DeleteFolder(ctx context.Context, folderID int64) error {
	return s.InTx(ctx, func(r Repository) error {
		tx := r.(*SQLiteStore)
		return wrap("delete folder", tx.deleteFolder(ctx, folderID))
	})
}

func (s *SQLiteStore) deleteFolder(ctx context.Context, folderID int64) error {
	var exists int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM scripts_folder WHERE id = ?`, folderID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("folder %d: %w", folderID, ErrNotFound)
	}

	scriptIDs, err := s.linkedScriptIDs(ctx, folderID)
	if err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM rel_script_folder WHERE folder_id = ?`, folderID); err != nil {
		return err
	}
	for _, id := range scriptIDs {
		if _, err := s.q.ExecContext(ctx,
			`DELETE FROM shell_script WHERE id = ? AND NOT EXISTS (SELECT 1 FROM rel_script_folder WHERE script_id = ?)`,
			id, id); err != nil {
			return err
		}
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM scripts_folder WHERE id = ?`, folderID); err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx,
		`UPDATE application_state SET last_opened_folder_id = NULL WHERE last_opened_folder_id = ?`, folderID)
	return err
}

func (s *SQLiteStore) linkedScriptIDs(ctx context.Context, folderID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT script_id FROM rel_script_folder WHERE folder_id = ?`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) BatchUpdateFolderOrder(ctx context.Context, orders []model.FolderOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return s.InTx(ctx, func(r Repository) error {
		tx := r.(*SQLiteStore)
		for _, o := range orders {
			if _, err := tx.q.ExecContext(ctx, `UPDATE scripts_folder SET ordering = ? WHERE id = ?`, o.Ordering, o.FolderID); err != nil {
				return wrap("batch update folder order", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) RenameFolder(ctx context.Context, folderID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return wrap("rename folder", fmt.Errorf("folder name required: %w", ErrInvalidArgument))
	}
	res, err := s.q.ExecContext(ctx, `UPDATE scripts_folder SET name = ? WHERE id = ?`, name, folderID)
	return wrap("rename folder", requireRow(res, err, "folder", folderID))
}

func (s *SQLiteStore) UpsertAppStateLastFolder(ctx context.Context, folderID int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO application_state (id, last_opened_folder_id) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET last_opened_folder_id = excluded.last_opened_folder_id`, folderID)
	return wrap("upsert app state", err)
}

func (s *SQLiteStore) GetAppState(ctx context.Context) (model.AppState, error) {
	var last sql.NullInt64
	err := s.q.QueryRowContext(ctx, `SELECT last_opened_folder_id FROM application_state WHERE id = 1`).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AppState{}, nil
	}
	if err != nil {
		return model.AppState{}, wrap("get app state", err)
	}
	var state model.AppState
	if last.Valid {
		id := last.Int64
		state.LastOpenedFolderID = &id
	}
	return state, nil
}

func (s *SQLiteStore) CreateScript(ctx context.Context, name, command string) (int64, error) {
	if strings.TrimSpace(command) == "" {
		return 0, wrap("create script", fmt.Errorf("script command required: %w", ErrInvalidArgument))
	}
	res, err := s.q.ExecContext(ctx, `INSERT INTO shell_script (name, command) VALUES (?, ?)`, strings.TrimSpace(name), command)
	if err != nil {
		return 0, wrap("create script", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create script", err)
	}
	return id, nil
}

func (s *SQLiteStore) LinkScriptToFolder(ctx context.Context, scriptID, folderID int64) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO rel_script_folder (script_id, folder_id) VALUES (?, ?)`, scriptID, folderID)
	return wrap("link script to folder", err)
}

func (s *SQLiteStore) GetScriptsForFolder(ctx context.Context, folderID int64) ([]model.Script, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT s.id, s.name, s.command
		FROM shell_script s
		JOIN rel_script_folder r ON r.script_id = s.id
		WHERE r.folder_id = ?
		ORDER BY s.id`, folderID)
	if err != nil {
		return nil, wrap("get scripts for folder", err)
	}
	defer rows.Close()

	var scripts []model.Script
	for rows.Next() {
		var sc model.Script
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Command); err != nil {
			return nil, wrap("get scripts for folder", err)
		}
		scripts = append(scripts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("get scripts for folder", err)
	}
	return scripts, nil
}

func (s *SQLiteStore) GetScript(ctx context.Context, scriptID int64) (model.Script, error) {
	var sc model.Script
	err := s.q.QueryRowContext(ctx, `SELECT id, name, command FROM shell_script WHERE id = ?`, scriptID).
		Scan(&sc.ID, &sc.Name, &sc.Command)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Script{}, wrap("get script", fmt.Errorf("script %d: %w", scriptID, ErrNotFound))
	}
	if err != nil {
		return model.Script{}, wrap("get script", err)
	}
	return sc, nil
}

func (s *SQLiteStore) UpdateScriptCommand(ctx context.Context, scriptID int64, command string) error {
	if strings.TrimSpace(command) == "" {
		return wrap("update script command", fmt.Errorf("script command required: %w", ErrInvalidArgument))
	}
	res, err := s.q.ExecContext(ctx, `UPDATE shell_script SET command = ? WHERE id = ?`, command, scriptID)
	return wrap("update script command", requireRow(res, err, "script", scriptID))
}

func (s *SQLiteStore) UpdateScriptName(ctx context.Context, scriptID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return wrap("update script name", fmt.Errorf("script name required: %w", ErrInvalidArgument))
	}
	res, err := s.q.ExecContext(ctx, `UPDATE shell_script SET name = ? WHERE id = ?`, name, scriptID)
	return wrap("update script name", requireRow(res, err, "script", scriptID))
}

func (s *SQLiteStore) DeleteScript(ctx context.Context, scriptID int64) error {
	return s.InTx(ctx, func(r Repository) error {
		tx := r.(*SQLiteStore)
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM rel_script_folder WHERE script_id = ?`, scriptID); err != nil {
			return wrap("delete script", err)
		}
		res, err := tx.q.ExecContext(ctx, `DELETE FROM shell_script WHERE id = ?`, scriptID)
		return wrap("delete script", requireRow(res, err, "script", scriptID))
	})
}

// requireRow turns a statement that touched nothing into ErrNotFound.
func requireRow(res sql.Result, err error, kind string, id int64) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
