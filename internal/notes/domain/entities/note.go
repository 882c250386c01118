// Package entities defines the domain entities for the notes service.
package entities

import "time"

// NoteFormat - формат отображения заметки.
type NoteFormat string

// Допустимые форматы.
const (
	FormatText   NoteFormat = "text"
	FormatTodo   NoteFormat = "todo"
	FormatBullet NoteFormat = "bullet"
)

// NoteColor - цветовая метка заметки.
type NoteColor string

// Допустимые цвета.
const (
	ColorPrimary   NoteColor = "primary"
	ColorSecondary NoteColor = "secondary"
	ColorTertiary  NoteColor = "tertiary"
)

// Note представляет собой заметку пользователя.
type Note struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Format    NoteFormat `json:"format"`
	Color     NoteColor  `json:"color"`
	IsPinned  bool       `json:"is_pinned"`
	IsDeleted bool       `json:"is_deleted"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NoteInput - данные для создания заметки.
type NoteInput struct {
	Title    string     `json:"title" validate:"required,min=1,max=200"`
	Content  string     `json:"content" validate:"required,min=1"`
	Format   NoteFormat `json:"format" validate:"omitempty,oneof=text todo bullet"`
	Color    NoteColor  `json:"color" validate:"omitempty,oneof=primary secondary tertiary"`
	IsPinned bool       `json:"is_pinned"`
}

// NotePatch - частичное обновление: nil означает "не менять".
type NotePatch struct {
	Title    *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content  *string     `json:"content,omitempty" validate:"omitempty,min=1"`
	Format   *NoteFormat `json:"format,omitempty" validate:"omitempty,oneof=text todo bullet"`
	Color    *NoteColor  `json:"color,omitempty" validate:"omitempty,oneof=primary secondary tertiary"`
	IsPinned *bool       `json:"is_pinned,omitempty"`
}

// Empty сообщает, что в патче нет ни одного поля.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Format == nil && p.Color == nil && p.IsPinned == nil
}

// NewNote создает активную заметку владельца с единым временем создания и обновления.
func NewNote(id, userID string, in NoteInput, now time.Time) *Note {
	format := in.Format
	if format == "" {
		format = FormatText
	}
	color := in.Color
	if color == "" {
		color = ColorPrimary
	}
	now = now.UTC()
	return &Note{
		ID:        id,
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		Format:    format,
		Color:     color,
		IsPinned:  in.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone возвращает независимую копию заметки.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
