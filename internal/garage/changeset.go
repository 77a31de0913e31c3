package garage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"garage-go/internal/model"
)

// ChangeEntry is one pending edit. Key is either a scalar build field
// ("displacement_ci") or a dotted path into a section document
// ("suspension.front.springs").
type ChangeEntry struct {
	Key   string
	Value json.RawMessage
}

// changeKey is a parsed ChangeEntry key. section is empty for scalar fields.
type changeKey struct {
	field   string
	section model.Section
	path    []string
}

func parseChangeKey(key string) (changeKey, error) {
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		if !model.IsBuildField(key) {
			return changeKey{}, validationError("unknown build field %q", key)
		}
		return changeKey{field: key}, nil
	}
	sec, err := model.ParseSection(head)
	if err != nil {
		return changeKey{}, validationError("%v", err)
	}
	if !sec.Editable() {
		return changeKey{}, validationError("section %s is read-only", sec)
	}
	path := strings.Split(rest, ".")
	for _, p := range path {
		if p == "" {
			return changeKey{}, validationError("empty path segment in %q", key)
		}
	}
	return changeKey{section: sec, path: path}, nil
}

// Changeset accumulates edits to one build until they are saved together or
// discarded.
type Changeset struct {
	buildID int64
	entries map[string]json.RawMessage
}

func NewChangeset(buildID int64) *Changeset {
	return &Changeset{buildID: buildID, entries: make(map[string]json.RawMessage)}
}

// BuildID returns the build the changeset applies to.
func (c *Changeset) BuildID() int64 { return c.buildID }

// Set records value for key, replacing any earlier edit of the same key.
func (c *Changeset) Set(key string, value json.RawMessage) error {
	if _, err := parseChangeKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return validationError("value for %s is not valid JSON", key)
	}
	c.entries[key] = value
	return nil
}

// Unset drops the pending edit of key.
func (c *Changeset) Unset(key string) {
	delete(c.entries, key)
}

// Entries returns the pending edits ordered by key.
func (c *Changeset) Entries() []ChangeEntry {
	out := make([]ChangeEntry, 0, len(c.entries))
	for k, v := range c.entries {
		out = append(out, ChangeEntry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (c *Changeset) IsEmpty() bool { return len(c.entries) == 0 }

// Discard drops every pending edit.
func (c *Changeset) Discard() {
	c.entries = make(map[string]json.RawMessage)
}

// ParseValue turns command-line text into a change value. Scalar fields take
// the text as JSON when it parses and as a string otherwise. Section paths
// hold string values, so only objects and arrays are taken as JSON there.
func ParseValue(key, text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(key, ".") {
		if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	} else if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(text)
	return quoted
}

// SaveChangeset sends the pending edits: one partial update carrying every
// scalar field, then one PUT per touched section with the edits merged into
// the section's current document. Every key and merge is validated before
// anything is sent. Flushed entries leave the changeset as each request
// succeeds; on failure the remaining entries stay for a retry. The keys sent
// are returned. Each request is atomic on its own, but the save as a whole is
// not: a failed section PUT leaves the earlier writes in place on the server.
func (s *Service) SaveChangeset(ctx context.Context, cs *Changeset) ([]string, error) {
	scalars := map[string]any{}
	var scalarKeys []string
	sections := map[model.Section][]ChangeEntry{}

	for _, e := range cs.Entries() {
		k, err := parseChangeKey(e.Key)
		if err != nil {
			return nil, err
		}
		if k.section == "" {
			var v any
			if err := json.Unmarshal(e.Value, &v); err != nil {
				return nil, validationError("value for %s: %v", e.Key, err)
			}
			scalars[k.field] = v
			scalarKeys = append(scalarKeys, e.Key)
			continue
		}
		sections[k.section] = append(sections[k.section], e)
	}

	// Section documents are merged before anything is sent so that a bad path
	// fails the whole save.
	docs := map[model.Section]json.RawMessage{}
	if len(sections) > 0 {
		current, err := s.backend.GetBuild(ctx, strconv.FormatInt(cs.buildID, 10))
		if err != nil {
			return nil, fmt.Errorf("loading build %d: %w", cs.buildID, err)
		}
		for sec, entries := range sections {
			doc, err := current.Section(sec)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				k, _ := parseChangeKey(e.Key)
				var v any
				if err := json.Unmarshal(e.Value, &v); err != nil {
					return nil, validationError("value for %s: %v", e.Key, err)
				}
				if err := setPath(doc, k.path, v); err != nil {
					return nil, validationError("%s: %v", e.Key, err)
				}
			}
			body, err := json.Marshal(doc)
			if err != nil {
				return nil, fmt.Errorf("encoding section %s: %w", sec, err)
			}
			docs[sec] = body
		}
	}

	var flushed []string
	if len(scalars) > 0 {
		if _, err := s.backend.UpdateBuild(ctx, cs.buildID, scalars); err != nil {
			return flushed, fmt.Errorf("updating build %d: %w", cs.buildID, err)
		}
		for _, k := range scalarKeys {
			cs.Unset(k)
		}
		flushed = append(flushed, scalarKeys...)
		s.logger.Info("build fields saved", "build", cs.buildID, "fields", len(scalarKeys))
	}

	for _, sec := range model.EditableSections {
		body, ok := docs[sec]
		if !ok {
			continue
		}
		if err := s.backend.PutSection(ctx, cs.buildID, sec, body); err != nil {
			return flushed, fmt.Errorf("saving section %s: %w", sec, err)
		}
		for _, e := range sections[sec] {
			cs.Unset(e.Key)
			flushed = append(flushed, e.Key)
		}
		s.logger.Info("build section saved", "build", cs.buildID, "section", sec, "fields", len(sections[sec]))
	}
	return flushed, nil
}

// setPath stores v at path inside doc, creating intermediate objects.
func setPath(doc map[string]any, path []string, v any) error {
	for i, p := range path[:len(path)-1] {
		next, ok := doc[p]
		if !ok || next == nil {
			child := map[string]any{}
			doc[p] = child
			doc = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not an object", strings.Join(path[:i+1], "."))
		}
		doc = child
	}
	doc[path[len(path)-1]] = v
	return nil
}

// StageChange validates an edit and persists it to the build's local draft.
func (s *Service) StageChange(buildID int64, key string, value json.RawMessage) error {
	if s.database == nil {
		return ErrNoDatabase
	}
	if err := NewChangeset(buildID).Set(key, value); err != nil {
		return err
	}
	entry := &DraftEntry{BuildID: buildID, Key: key, Value: value, UpdatedAt: s.clock.Now()}
	if err := s.database.PutDraftEntry(entry); err != nil {
		return fmt.Errorf("staging %s: %w", key, err)
	}
	s.logger.Debug("change staged", "build", buildID, "key", key)
	return nil
}

// UnstageChange drops one edit from the build's draft.
func (s *Service) UnstageChange(buildID int64, key string) error {
	if s.database == nil {
		return ErrNoDatabase
	}
	if err := s.database.DeleteDraftEntries(buildID, []string{key}); err != nil {
		return fmt.Errorf("unstaging %s: %w", key, err)
	}
	return nil
}

// LoadDraft returns the build's persisted draft as a changeset.
func (s *Service) LoadDraft(buildID int64) (*Changeset, error) {
	if s.database == nil {
		return nil, ErrNoDatabase
	}
	entries, err := s.database.ListDraftEntries(buildID)
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}
	cs := NewChangeset(buildID)
	for _, e := range entries {
		if err := cs.Set(e.Key, e.Value); err != nil {
			return nil, fmt.Errorf("draft entry %s: %w", e.Key, err)
		}
	}
	return cs, nil
}

// SaveDraft sends the build's draft. Entries that reached the server are
// removed from the draft even when a later request fails.
func (s *Service) SaveDraft(ctx context.Context, buildID int64) ([]string, error) {
	cs, err := s.LoadDraft(buildID)
	if err != nil {
		return nil, err
	}
	if cs.IsEmpty() {
		return nil, nil
	}
	flushed, saveErr := s.SaveChangeset(ctx, cs)
	if len(flushed) > 0 {
		if err := s.database.DeleteDraftEntries(buildID, flushed); err != nil {
			return flushed, fmt.Errorf("clearing saved draft entries: %w", err)
		}
	}
	return flushed, saveErr
}

// DiscardDraft drops the build's draft.
func (s *Service) DiscardDraft(buildID int64) error {
	if s.database == nil {
		return ErrNoDatabase
	}
	if err := s.database.ClearDraft(buildID); err != nil {
		return fmt.Errorf("discarding draft: %w", err)
	}
	s.logger.Info("draft discarded", "build", buildID)
	return nil
}

// DraftBuilds returns the ids of builds with unsaved drafts.
func (s *Service) DraftBuilds() ([]int64, error) {
	if s.database == nil {
		return nil, ErrNoDatabase
	}
	ids, err := s.database.ListDraftBuilds()
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	return ids, nil
}
