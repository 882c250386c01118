// Package postgres provides PostgreSQL implementations of repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/repositories"
	"notecache/pkg/logger"
)

// Константы для сообщений об ошибках.
const (
	ErrBuildQuery     = "failed to build query"
	ErrCreateNote     = "failed to create note"
	ErrGetNote        = "failed to get note"
	ErrUpdateNote     = "failed to update note"
	ErrQueryNotes     = "failed to query notes"
	ErrScanNote       = "failed to scan note"
	ErrPingNotesStore = "failed to ping notes store"
)

// ErrUnsupportedFilter возвращается для фильтра по неизвестному полю или оператору.
var ErrUnsupportedFilter = errors.New("unsupported filter")

const notesTable = "notes"

var noteColumns = []string{
	"id", "owner_id", "title", "content", "format", "color",
	"is_pinned", "is_deleted", "created_at", "updated_at",
}

// DBTX - подмножество pgxpool.Pool, нужное хранилищу.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// NoteStore хранит заметки в таблице notes с ключом (owner_id, id).
type NoteStore struct {
	db   DBTX
	psql sq.StatementBuilderType
}

var _ repositories.NoteStore = (*NoteStore)(nil)

// NewNoteStore создает хранилище заметок поверх пула соединений.
func NewNoteStore(db DBTX) *NoteStore {
	return &NoteStore{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create сохраняет новую заметку.
func (s *NoteStore) Create(ctx context.Context, note *entities.Note) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Create"))

	query, args, err := s.psql.Insert(notesTable).
		Columns(noteColumns...).
		Values(note.ID, note.UserID, note.Title, note.Content, string(note.Format), string(note.Color),
			note.IsPinned, note.IsDeleted, note.CreatedAt, note.UpdatedAt).
		Suffix("RETURNING " + strings.Join(noteColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildQuery, err)
	}

	created, err := scanNote(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		log.Error(ctx, ErrCreateNote, zap.Error(err), zap.String("owner_id", note.UserID))
		return nil, fmt.Errorf("%s: %w", ErrCreateNote, err)
	}

	log.Debug(ctx, "note created", zap.String("note_id", created.ID))
	return created, nil
}

// Get получает заметку владельца; отсутствие возвращает (nil, nil).
func (s *NoteStore) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Get"))

	query, args, err := s.psql.Select(noteColumns...).
		From(notesTable).
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.Eq{"id": noteID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildQuery, err)
	}

	note, err := scanNote(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug(ctx, "note not found", zap.String("note_id", noteID))
			return nil, nil
		}
		log.Error(ctx, ErrGetNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrGetNote, err)
	}

	return note, nil
}

// Update применяет изменения к заметке владельца; отсутствие возвращает (nil, nil).
func (s *NoteStore) Update(ctx context.Context, ownerID, noteID string, changes repositories.NoteChanges) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Update"))

	builder := s.psql.Update(notesTable)
	if changes.Title != nil {
		builder = builder.Set("title", *changes.Title)
	}
	if changes.Content != nil {
		builder = builder.Set("content", *changes.Content)
	}
	if changes.Format != nil {
		builder = builder.Set("format", string(*changes.Format))
	}
	if changes.Color != nil {
		builder = builder.Set("color", string(*changes.Color))
	}
	if changes.IsPinned != nil {
		builder = builder.Set("is_pinned", *changes.IsPinned)
	}
	if changes.IsDeleted != nil {
		builder = builder.Set("is_deleted", *changes.IsDeleted)
	}

	query, args, err := builder.
		Set("updated_at", changes.UpdatedAt.UTC()).
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.Eq{"id": noteID}).
		Suffix("RETURNING " + strings.Join(noteColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildQuery, err)
	}

	note, err := scanNote(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug(ctx, "note not found", zap.String("note_id", noteID))
			return nil, nil
		}
		log.Error(ctx, ErrUpdateNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrUpdateNote, err)
	}

	log.Debug(ctx, "note updated", zap.String("note_id", noteID))
	return note, nil
}

// Query возвращает заметки владельца, прошедшие фильтры.
func (s *NoteStore) Query(ctx context.Context, ownerID string, filters []repositories.Filter, opts repositories.QueryOptions) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Query"))

	builder := s.psql.Select(noteColumns...).
		From(notesTable).
		Where(sq.Eq{"owner_id": ownerID})
	for _, f := range filters {
		cond, err := filterCondition(f)
		if err != nil {
			return nil, err
		}
		builder = builder.Where(cond)
	}
	if opts.Order == repositories.OrderUpdatedAtDesc {
		builder = builder.OrderBy("updated_at DESC")
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildQuery, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Error(ctx, ErrQueryNotes, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrQueryNotes, err)
	}
	defer rows.Close()

	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrScanNote, err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		log.Error(ctx, ErrQueryNotes, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrQueryNotes, err)
	}

	log.Debug(ctx, "notes queried", zap.Int("count", len(notes)))
	return notes, nil
}

// Ping проверяет соединение с базой.
func (s *NoteStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrPingNotesStore, err)
	}
	return nil
}

func filterCondition(f repositories.Filter) (sq.Sqlizer, error) {
	switch f.Field {
	case repositories.FieldIsDeleted, repositories.FieldIsPinned, repositories.FieldFormat, repositories.FieldColor:
	default:
		return nil, fmt.Errorf("%w: field %q", ErrUnsupportedFilter, f.Field)
	}

	value := f.Value
	switch v := value.(type) {
	case entities.NoteFormat:
		value = string(v)
	case entities.NoteColor:
		value = string(v)
	}

	column := string(f.Field)
	switch f.Op {
	case repositories.OpEqual:
		return sq.Eq{column: value}, nil
	case repositories.OpNotEqual:
		return sq.NotEq{column: value}, nil
	default:
		return nil, fmt.Errorf("%w: operator %q", ErrUnsupportedFilter, f.Op)
	}
}

func scanNote(row pgx.Row) (*entities.Note, error) {
	var (
		note          entities.Note
		format, color string
	)
	if err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Content, &format, &color,
		&note.IsPinned, &note.IsDeleted, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}
	note.Format = entities.NoteFormat(format)
	note.Color = entities.NoteColor(color)
	note.CreatedAt = note.CreatedAt.UTC()
	note.UpdatedAt = note.UpdatedAt.UTC()
	return &note, nil
}
