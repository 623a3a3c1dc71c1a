package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicstack/shell-script-manager/internal/model"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db), mock
}

func TestSQLiteStoreFailurePaths(t *testing.T) {
	updateOrdering := regexp.QuoteMeta(`UPDATE scripts_folder SET ordering = ? WHERE id = ?`)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(ctx context.Context, s *SQLiteStore) error
		op        string
		notFound  bool
	}{
		{
			name: "batch update rolls back on failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(updateOrdering).WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(updateOrdering).WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run: func(ctx context.Context, s *SQLiteStore) error {
				return s.BatchUpdateFolderOrder(ctx, []model.FolderOrder{{FolderID: 1, Ordering: 0}, {FolderID: 2, Ordering: 1}})
			},
			op: "batch update folder order",
		},
		{
			name: "commit failure surfaces",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(updateOrdering).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			run: func(ctx context.Context, s *SQLiteStore) error {
				return s.BatchUpdateFolderOrder(ctx, []model.FolderOrder{{FolderID: 1, Ordering: 0}})
			},
			op: "commit",
		},
		{
			name: "rename touching no rows is not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE scripts_folder SET name = ?`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run: func(ctx context.Context, s *SQLiteStore) error {
				return s.RenameFolder(ctx, 7, "new")
			},
			op:       "rename folder",
			notFound: true,
		},
		{
			name: "folder query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, ordering FROM scripts_folder`)).
					WillReturnError(assert.AnError)
			},
			run: func(ctx context.Context, s *SQLiteStore) error {
				_, err := s.GetAllFolders(ctx)
				return err
			},
			op: "get all folders",
		},
		{
			name: "delete folder stops at missing relation table",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM scripts_folder WHERE id = ?`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT script_id FROM rel_script_folder`)).
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run: func(ctx context.Context, s *SQLiteStore) error {
				return s.DeleteFolder(ctx, 3)
			},
			op: "delete folder",
		},
		{
			name: "delete script rolls back when script is gone",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM rel_script_folder WHERE script_id = ?`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM shell_script WHERE id = ?`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			run: func(ctx context.Context, s *SQLiteStore) error {
				return s.DeleteScript(ctx, 5)
			},
			op:       "delete script",
			notFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			err := tt.run(context.Background(), store)
			require.Error(t, err)
			var pe *PersistenceError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.op, pe.Op)
			if tt.notFound {
				assert.ErrorIs(t, err, ErrNotFound)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTxFallsBackWithoutTransactor(t *testing.T) {
	var called bool
	err := RunInTx(context.Background(), plainRepo{}, func(r Repository) error {
		called = true
		_, ok := r.(plainRepo)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

// plainRepo satisfies Repository without offering transactions.
type plainRepo struct{ Repository }
