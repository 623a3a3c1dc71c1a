// Package repository defines the persistence contract used by the command and
// event handlers, together with its SQLite implementation.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomicstack/shell-script-manager/internal/model"
)

var (
	// ErrNotFound reports that the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidArgument reports input rejected before reaching the database.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PersistenceError wraps every failure surfaced by a Repository.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Repository is the persistent store of folders, scripts, their relations and
// the application state singleton. Every method may fail.
type Repository interface {
	CreateFolder(ctx context.Context, name string, ordering int) (int64, error)
	GetAllFolders(ctx context.Context) ([]model.Folder, error)
	GetFolderCount(ctx context.Context) (int, error)
	// DeleteFolder removes the folder's relation rows, then the scripts no
	// longer linked to any folder, then the folder itself.
	DeleteFolder(ctx context.Context, folderID int64) error
	BatchUpdateFolderOrder(ctx context.Context, orders []model.FolderOrder) error
	RenameFolder(ctx context.Context, folderID int64, name string) error

	UpsertAppStateLastFolder(ctx context.Context, folderID int64) error
	GetAppState(ctx context.Context) (model.AppState, error)

	CreateScript(ctx context.Context, name, command string) (int64, error)
	LinkScriptToFolder(ctx context.Context, scriptID, folderID int64) error
	GetScriptsForFolder(ctx context.Context, folderID int64) ([]model.Script, error)
	GetScript(ctx context.Context, scriptID int64) (model.Script, error)
	UpdateScriptCommand(ctx context.Context, scriptID int64, command string) error
	UpdateScriptName(ctx context.Context, scriptID int64, name string) error
	DeleteScript(ctx context.Context, scriptID int64) error
}

// Transactor is implemented by repositories able to run several operations
// atomically. fn receives a Repository bound to the transaction; returning an
// error rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}

// RunInTx runs fn inside a transaction when repo supports one and directly
// against repo otherwise.
func RunInTx(ctx context.Context, repo Repository, fn func(Repository) error) error {
	if tx, ok := repo.(Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(repo)
}
