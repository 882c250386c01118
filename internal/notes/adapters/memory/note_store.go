// Package memory содержит хранилище заметок в памяти процесса.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/repositories"
)

// Ошибки хранилища.
var (
	ErrDuplicateNote = errors.New("note already exists")
	ErrUnknownFilter = errors.New("unsupported filter")
	ErrInvalidFilter = errors.New("invalid filter value")
)

// NoteStore хранит заметки в map, разбитой по владельцам.
type NoteStore struct {
	mu    sync.RWMutex
	notes map[string]map[string]*entities.Note
}

var _ repositories.NoteStore = (*NoteStore)(nil)

// NewNoteStore создает пустое хранилище.
func NewNoteStore() *NoteStore {
	return &NoteStore{notes: make(map[string]map[string]*entities.Note)}
}

// Create сохраняет копию заметки.
func (s *NoteStore) Create(_ context.Context, note *entities.Note) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.notes[note.UserID]
	if !ok {
		owned = make(map[string]*entities.Note)
		s.notes[note.UserID] = owned
	}
	if _, exists := owned[note.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNote, note.ID)
	}
	owned[note.ID] = note.Clone()
	return note.Clone(), nil
}

// Get возвращает заметку владельца или nil.
func (s *NoteStore) Get(_ context.Context, ownerID, noteID string) (*entities.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.notes[ownerID][noteID].Clone(), nil
}

// Update применяет изменения к заметке владельца.
func (s *NoteStore) Update(_ context.Context, ownerID, noteID string, changes repositories.NoteChanges) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.notes[ownerID][noteID]
	if !ok {
		return nil, nil
	}
	if changes.Title != nil {
		note.Title = *changes.Title
	}
	if changes.Content != nil {
		note.Content = *changes.Content
	}
	if changes.Format != nil {
		note.Format = *changes.Format
	}
	if changes.Color != nil {
		note.Color = *changes.Color
	}
	if changes.IsPinned != nil {
		note.IsPinned = *changes.IsPinned
	}
	if changes.IsDeleted != nil {
		note.IsDeleted = *changes.IsDeleted
	}
	note.UpdatedAt = changes.UpdatedAt.UTC()
	return note.Clone(), nil
}

// Query возвращает заметки владельца, прошедшие все фильтры.
func (s *NoteStore) Query(_ context.Context, ownerID string, filters []repositories.Filter, opts repositories.QueryOptions) ([]*entities.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Note, 0, len(s.notes[ownerID]))
	for _, note := range s.notes[ownerID] {
		ok, err := matchAll(note, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, note.Clone())
		}
	}

	if opts.Order == repositories.OrderUpdatedAtDesc {
		slices.SortFunc(result, func(a, b *entities.Note) int {
			return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
		})
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// Ping всегда успешен.
func (s *NoteStore) Ping(context.Context) error {
	return nil
}

func matchAll(note *entities.Note, filters []repositories.Filter) (bool, error) {
	for _, f := range filters {
		actual, err := fieldValue(note, f.Field)
		if err != nil {
			return false, err
		}
		expected, err := normalize(f.Value)
		if err != nil {
			return false, err
		}
		switch f.Op {
		case repositories.OpEqual:
			if actual != expected {
				return false, nil
			}
		case repositories.OpNotEqual:
			if actual == expected {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: operator %q", ErrUnknownFilter, f.Op)
		}
	}
	return true, nil
}

func fieldValue(note *entities.Note, field repositories.Field) (any, error) {
	switch field {
	case repositories.FieldIsDeleted:
		return note.IsDeleted, nil
	case repositories.FieldIsPinned:
		return note.IsPinned, nil
	case repositories.FieldFormat:
		return string(note.Format), nil
	case repositories.FieldColor:
		return string(note.Color), nil
	default:
		return nil, fmt.Errorf("%w: field %q", ErrUnknownFilter, field)
	}
}

func normalize(v any) (any, error) {
	switch val := v.(type) {
	case bool, string:
		return val, nil
	case entities.NoteFormat:
		return string(val), nil
	case entities.NoteColor:
		return string(val), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidFilter, v)
	}
}
