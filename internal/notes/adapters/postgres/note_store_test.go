package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecache/internal/notes/adapters/postgres"
	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/repositories"
)

var errDatabaseConnection = errors.New("database connection failed")

var columns = []string{
	"id", "owner_id", "title", "content", "format", "color",
	"is_pinned", "is_deleted", "created_at", "updated_at",
}

var createdAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleNote() *entities.Note {
	return &entities.Note{
		ID:        "note-1",
		UserID:    "user-1",
		Title:     "Title",
		Content:   "Content",
		Format:    entities.FormatTodo,
		Color:     entities.ColorSecondary,
		IsPinned:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func noteRow(n *entities.Note) *pgxmock.Rows {
	return pgxmock.NewRows(columns).AddRow(n.ID, n.UserID, n.Title, n.Content, string(n.Format), string(n.Color),
		n.IsPinned, n.IsDeleted, n.CreatedAt, n.UpdatedAt)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestNoteStore_Create(t *testing.T) {
	ctx := context.Background()
	note := sampleNote()

	t.Run("success", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO notes \(id,owner_id,title,content,format,color,is_pinned,is_deleted,created_at,updated_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8,\$9,\$10\) RETURNING id, owner_id`).
			WithArgs(note.ID, note.UserID, note.Title, note.Content, "todo", "secondary", true, false, createdAt, createdAt).
			WillReturnRows(noteRow(note))

		created, err := postgres.NewNoteStore(mock).Create(ctx, note)

		require.NoError(t, err)
		assert.Equal(t, note, created)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO notes`).WillReturnError(errDatabaseConnection)

		created, err := postgres.NewNoteStore(mock).Create(ctx, note)

		require.ErrorIs(t, err, errDatabaseConnection)
		assert.Contains(t, err.Error(), postgres.ErrCreateNote)
		assert.Nil(t, created)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteStore_Get(t *testing.T) {
	ctx := context.Background()
	note := sampleNote()
	const query = `SELECT id, owner_id, title, content, format, color, is_pinned, is_deleted, created_at, updated_at FROM notes WHERE owner_id = \$1 AND id = \$2`

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(query).WithArgs("user-1", "note-1").WillReturnRows(noteRow(note))

		got, err := postgres.NewNoteStore(mock).Get(ctx, "user-1", "note-1")

		require.NoError(t, err)
		assert.Equal(t, note, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(query).WithArgs("user-2", "note-1").WillReturnError(pgx.ErrNoRows)

		got, err := postgres.NewNoteStore(mock).Get(ctx, "user-2", "note-1")

		require.NoError(t, err)
		assert.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(query).WithArgs("user-1", "note-1").WillReturnError(errDatabaseConnection)

		_, err := postgres.NewNoteStore(mock).Get(ctx, "user-1", "note-1")

		require.ErrorIs(t, err, errDatabaseConnection)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteStore_Update(t *testing.T) {
	ctx := context.Background()
	updatedAt := createdAt.Add(time.Hour)

	t.Run("provided fields only", func(t *testing.T) {
		mock := newMock(t)
		title := "New"
		pinned := false
		updated := sampleNote()
		updated.Title = title
		updated.IsPinned = pinned
		updated.UpdatedAt = updatedAt

		mock.ExpectQuery(`UPDATE notes SET title = \$1, is_pinned = \$2, updated_at = \$3 WHERE owner_id = \$4 AND id = \$5 RETURNING id`).
			WithArgs(title, pinned, updatedAt, "user-1", "note-1").
			WillReturnRows(noteRow(updated))

		got, err := postgres.NewNoteStore(mock).Update(ctx, "user-1", "note-1", repositories.NoteChanges{
			Title:     &title,
			IsPinned:  &pinned,
			UpdatedAt: updatedAt,
		})

		require.NoError(t, err)
		assert.Equal(t, updated, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("soft delete", func(t *testing.T) {
		mock := newMock(t)
		deleted := true
		updated := sampleNote()
		updated.IsDeleted = true
		updated.UpdatedAt = updatedAt

		mock.ExpectQuery(`UPDATE notes SET is_deleted = \$1, updated_at = \$2 WHERE owner_id = \$3 AND id = \$4`).
			WithArgs(true, updatedAt, "user-1", "note-1").
			WillReturnRows(noteRow(updated))

		got, err := postgres.NewNoteStore(mock).Update(ctx, "user-1", "note-1", repositories.NoteChanges{
			IsDeleted: &deleted,
			UpdatedAt: updatedAt,
		})

		require.NoError(t, err)
		assert.True(t, got.IsDeleted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE notes SET updated_at = \$1 WHERE owner_id = \$2 AND id = \$3`).
			WithArgs(updatedAt, "user-1", "missing").
			WillReturnError(pgx.ErrNoRows)

		got, err := postgres.NewNoteStore(mock).Update(ctx, "user-1", "missing", repositories.NoteChanges{UpdatedAt: updatedAt})

		require.NoError(t, err)
		assert.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteStore_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("filters order and limit", func(t *testing.T) {
		mock := newMock(t)
		first := sampleNote()
		second := sampleNote()
		second.ID = "note-2"

		rows := pgxmock.NewRows(columns).
			AddRow(first.ID, first.UserID, first.Title, first.Content, "todo", "secondary", true, false, createdAt, createdAt).
			AddRow(second.ID, second.UserID, second.Title, second.Content, "todo", "secondary", true, false, createdAt, createdAt)

		mock.ExpectQuery(`FROM notes WHERE owner_id = \$1 AND is_deleted = \$2 AND format <> \$3 ORDER BY updated_at DESC LIMIT 30`).
			WithArgs("user-1", false, "bullet").
			WillReturnRows(rows)

		notes, err := postgres.NewNoteStore(mock).Query(ctx, "user-1", []repositories.Filter{
			{Field: repositories.FieldIsDeleted, Op: repositories.OpEqual, Value: false},
			{Field: repositories.FieldFormat, Op: repositories.OpNotEqual, Value: entities.FormatBullet},
		}, repositories.QueryOptions{Limit: 30, Order: repositories.OrderUpdatedAtDesc})

		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "note-2", notes[1].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbounded without filters", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM notes WHERE owner_id = \$1$`).
			WithArgs("user-1").
			WillReturnRows(pgxmock.NewRows(columns))

		notes, err := postgres.NewNoteStore(mock).Query(ctx, "user-1", nil, repositories.QueryOptions{})

		require.NoError(t, err)
		assert.NotNil(t, notes)
		assert.Empty(t, notes)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsupported filter", func(t *testing.T) {
		mock := newMock(t)

		_, err := postgres.NewNoteStore(mock).Query(ctx, "user-1", []repositories.Filter{
			{Field: "title", Op: repositories.OpEqual, Value: "x"},
		}, repositories.QueryOptions{})

		require.ErrorIs(t, err, postgres.ErrUnsupportedFilter)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM notes`).WillReturnError(errDatabaseConnection)

		_, err := postgres.NewNoteStore(mock).Query(ctx, "user-1", nil, repositories.QueryOptions{})

		require.ErrorIs(t, err, errDatabaseConnection)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteStore_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errDatabaseConnection)

	err = postgres.NewNoteStore(mock).Ping(context.Background())
	require.ErrorIs(t, err, errDatabaseConnection)
	require.NoError(t, mock.ExpectationsWereMet())
}
