package garage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"garage-go/internal/model"
)

// NoteBoard is the note list of one component of one build. Only the build
// owner may add notes, and only a note's author may edit or delete it.
type NoteBoard struct {
	api       NoteAPI
	logger    Logger
	build     *model.Build
	component model.ComponentType
	user      *model.User

	// Notes is the list on display, newest first.
	Notes []model.ComponentNote
}

// NewNoteBoard creates a board for build and component as seen by user. user
// may be nil for an anonymous viewer of a shared build.
func NewNoteBoard(api NoteAPI, build *model.Build, component model.ComponentType, user *model.User, logger Logger) *NoteBoard {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &NoteBoard{api: api, logger: logger, build: build, component: component, user: user}
}

// Load fetches the notes.
func (b *NoteBoard) Load(ctx context.Context) error {
	notes, err := b.api.ListNotes(ctx, b.build.ID, b.component)
	if err != nil {
		return fmt.Errorf("loading notes: %w", err)
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Timestamp.After(notes[j].Timestamp.Time)
	})
	b.Notes = notes
	return nil
}

// CanAdd reports whether the viewer owns the build.
func (b *NoteBoard) CanAdd() bool {
	return b.build.OwnedBy(b.user)
}

// CanModify reports whether the viewer may edit or delete note. That requires
// owning the build and having written the note.
func (b *NoteBoard) CanModify(note *model.ComponentNote) bool {
	return b.CanAdd() && note.UserID == b.user.ID
}

// Add posts a new note.
func (b *NoteBoard) Add(ctx context.Context, content string) (*model.ComponentNote, error) {
	if !b.CanAdd() {
		return nil, fmt.Errorf("%w: only the build owner can add notes", ErrForbidden)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("note content is required")
	}
	note, err := b.api.AddNote(ctx, b.build.ID, b.component, content)
	if err != nil {
		return nil, fmt.Errorf("adding note: %w", err)
	}
	b.logger.Info("note added", "build", b.build.ID, "component", b.component, "id", note.ID)
	return note, b.Load(ctx)
}

// Edit replaces the content of a note. The server keeps the original
// timestamp and sets last_edited.
func (b *NoteBoard) Edit(ctx context.Context, noteID, content string) (*model.ComponentNote, error) {
	if err := b.checkAuthor(noteID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("note content is required")
	}
	note, err := b.api.UpdateNote(ctx, b.build.ID, b.component, noteID, content)
	if err != nil {
		return nil, fmt.Errorf("editing note: %w", err)
	}
	b.logger.Info("note edited", "build", b.build.ID, "component", b.component, "id", noteID)
	return note, b.Load(ctx)
}

// Delete removes a note after confirmation.
func (b *NoteBoard) Delete(ctx context.Context, noteID string, c Confirmer) error {
	if err := b.checkAuthor(noteID); err != nil {
		return err
	}
	if err := confirm(c, "Delete this note?"); err != nil {
		return err
	}
	if err := b.api.DeleteNote(ctx, b.build.ID, b.component, noteID); err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	b.logger.Info("note deleted", "build", b.build.ID, "component", b.component, "id", noteID)
	return b.Load(ctx)
}

func (b *NoteBoard) checkAuthor(noteID string) error {
	for i := range b.Notes {
		if b.Notes[i].ID != noteID {
			continue
		}
		if !b.CanModify(&b.Notes[i]) {
			return fmt.Errorf("%w: only the author can change this note", ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("note %s: %w", noteID, ErrNotFound)
}
