// Package repositories defines storage ports for the notes service.
package repositories

import (
	"context"
	"time"

	"notecache/internal/notes/domain/entities"
)

// Field - поле заметки, по которому допускается фильтрация.
type Field string

// Фильтруемые поля.
const (
	FieldIsDeleted Field = "is_deleted"
	FieldIsPinned  Field = "is_pinned"
	FieldFormat    Field = "format"
	FieldColor     Field = "color"
)

// Operator - оператор сравнения в фильтре.
type Operator string

// Поддерживаемые операторы.
const (
	OpEqual    Operator = "=="
	OpNotEqual Operator = "!="
)

// Filter - тройка (поле, оператор, значение).
type Filter struct {
	Field Field
	Op    Operator
	Value any
}

// Order задает порядок выдачи Query.
type Order int

// Поддерживаемые порядки.
const (
	OrderNone Order = iota
	OrderUpdatedAtDesc
)

// QueryOptions ограничивает выборку. Limit 0 - без ограничения; смещения нет.
type QueryOptions struct {
	Limit int
	Order Order
}

// NoteChanges - набор изменяемых полей; UpdatedAt выставляется всегда.
type NoteChanges struct {
	Title     *string
	Content   *string
	Format    *entities.NoteFormat
	Color     *entities.NoteColor
	IsPinned  *bool
	IsDeleted *bool
	UpdatedAt time.Time
}

// NoteStore - авторитетное хранилище заметок, разбитое по владельцам.
// Get и Update возвращают (nil, nil), если заметки нет у данного владельца.
type NoteStore interface {
	Create(ctx context.Context, note *entities.Note) (*entities.Note, error)
	Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error)
	Update(ctx context.Context, ownerID, noteID string, changes NoteChanges) (*entities.Note, error)
	Query(ctx context.Context, ownerID string, filters []Filter, opts QueryOptions) ([]*entities.Note, error)
	Ping(ctx context.Context) error
}
