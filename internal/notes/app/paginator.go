package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/repositories"
)

// ErrorFailedToQueryNotes - ошибка выборки заметок.
const ErrorFailedToQueryNotes = "failed to query notes"

// Paginator строит страницу поверх хранилища без поддержки смещения.
type Paginator interface {
	Page(ctx context.Context, ownerID string, filters []repositories.Filter, limit, offset int) ([]*entities.Note, error)
}

// SortSlicePaginator запрашивает limit+offset записей, сортирует их и отрезает страницу.
type SortSlicePaginator struct {
	store repositories.NoteStore
}

// NewSortSlicePaginator создает пагинатор поверх хранилища.
func NewSortSlicePaginator(store repositories.NoteStore) *SortSlicePaginator {
	return &SortSlicePaginator{store: store}
}

// Page возвращает страницу, упорядоченную по updated_at по убыванию.
func (p *SortSlicePaginator) Page(ctx context.Context, ownerID string, filters []repositories.Filter, limit, offset int) ([]*entities.Note, error) {
	notes, err := p.store.Query(ctx, ownerID, filters, repositories.QueryOptions{
		Limit: limit + offset,
		Order: repositories.OrderUpdatedAtDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorFailedToQueryNotes, err)
	}
	return paginate(notes, limit, offset), nil
}

// paginate сортирует по updated_at по убыванию и вырезает [offset, offset+limit).
func paginate(notes []*entities.Note, limit, offset int) []*entities.Note {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b *entities.Note) int {
		return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	})

	if offset >= len(sorted) {
		return []*entities.Note{}
	}
	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return sorted[offset:end]
}
