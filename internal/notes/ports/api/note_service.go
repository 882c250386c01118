// Package api определяет операции заметок, доступные транспортному слою.
package api

import (
	"context"

	"notecache/internal/notes/domain/entities"
)

// ListParams - параметры страницы списка.
type ListParams struct {
	IncludeDeleted bool
	Limit          int `validate:"min=1,max=100"`
	Offset         int `validate:"min=0"`
}

// SearchParams - параметры поиска.
type SearchParams struct {
	Query  string `validate:"required"`
	Limit  int    `validate:"min=1,max=100"`
	Offset int    `validate:"min=0"`
}

// NoteService - операции над заметками владельца.
type NoteService interface {
	Create(ctx context.Context, ownerID string, in entities.NoteInput) (*entities.Note, error)
	Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error)
	List(ctx context.Context, ownerID string, params ListParams) ([]*entities.Note, error)
	Update(ctx context.Context, ownerID, noteID string, patch entities.NotePatch) (*entities.Note, error)
	Delete(ctx context.Context, ownerID, noteID string) error
	Count(ctx context.Context, ownerID string, includeDeleted bool) (int64, error)
	Search(ctx context.Context, ownerID string, params SearchParams) ([]*entities.Note, error)
}
