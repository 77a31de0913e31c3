package garage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"garage-go/internal/model"
)

// ComponentDataSize returns the size the backend counts against the storage
// quota: the length of the compact JSON encoding.
func ComponentDataSize(data json.RawMessage) (int, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// validateComponent checks an input before it is sent.
func validateComponent(t model.ComponentType, in *model.ComponentInput) error {
	if _, err := model.ParseComponentType(string(t)); err != nil {
		return validationError("%v", err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return validationError("component name is required")
	}
	if len(bytes.TrimSpace(in.ComponentData)) == 0 {
		in.ComponentData = json.RawMessage("{}")
	}
	var probe map[string]any
	if err := json.Unmarshal(in.ComponentData, &probe); err != nil {
		return validationError("component data must be a JSON object")
	}
	size, err := ComponentDataSize(in.ComponentData)
	if err != nil {
		return validationError("component data: %v", err)
	}
	if size > model.MaxComponentDataBytes {
		return validationError("component data too large: %.2fMB exceeds 1MB limit", float64(size)/(1024*1024))
	}
	return nil
}

// CreateComponent adds a component to the library.
func (s *Service) CreateComponent(ctx context.Context, t model.ComponentType, in model.ComponentInput) (*model.Component, error) {
	if err := validateComponent(t, &in); err != nil {
		return nil, err
	}
	c, err := s.backend.CreateComponent(ctx, t, in)
	if err != nil {
		return nil, fmt.Errorf("creating %s component: %w", t, err)
	}
	s.logger.Info("component created", "type", t, "id", c.ID, "name", c.Name)
	return c, nil
}

// Component fetches one library component.
func (s *Service) Component(ctx context.Context, t model.ComponentType, id int64) (*model.Component, error) {
	if _, err := model.ParseComponentType(string(t)); err != nil {
		return nil, validationError("%v", err)
	}
	c, err := s.backend.GetComponent(ctx, t, id)
	if err != nil {
		return nil, fmt.Errorf("loading %s component %d: %w", t, id, err)
	}
	return c, nil
}

// UpdateComponent replaces a component's name, description, flag and data.
func (s *Service) UpdateComponent(ctx context.Context, t model.ComponentType, id int64, in model.ComponentInput) (*model.Component, error) {
	if err := validateComponent(t, &in); err != nil {
		return nil, err
	}
	c, err := s.backend.UpdateComponent(ctx, t, id, in)
	if err != nil {
		return nil, fmt.Errorf("updating %s component %d: %w", t, id, err)
	}
	s.logger.Info("component updated", "type", t, "id", id)
	return c, nil
}

// DeleteComponent removes a component after confirmation.
func (s *Service) DeleteComponent(ctx context.Context, t model.ComponentType, id int64, c Confirmer) error {
	if err := confirm(c, fmt.Sprintf("Delete %s component %d?", t, id)); err != nil {
		return err
	}
	if err := s.backend.DeleteComponent(ctx, t, id); err != nil {
		return fmt.Errorf("deleting %s component %d: %w", t, id, err)
	}
	s.logger.Info("component deleted", "type", t, "id", id)
	return nil
}

// Templates lists the shared templates of a component type.
func (s *Service) Templates(ctx context.Context, t model.ComponentType) ([]model.Component, error) {
	if _, err := model.ParseComponentType(string(t)); err != nil {
		return nil, validationError("%v", err)
	}
	list, err := s.backend.ListTemplates(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("listing %s templates: %w", t, err)
	}
	return list, nil
}

// CloneComponent duplicates a component under a new name. The copy is never a
// template.
func (s *Service) CloneComponent(ctx context.Context, t model.ComponentType, id int64, newName string) (*model.Component, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, validationError("a name for the copy is required")
	}
	c, err := s.backend.CloneComponent(ctx, t, id, newName)
	if err != nil {
		return nil, fmt.Errorf("cloning %s component %d: %w", t, id, err)
	}
	s.logger.Info("component cloned", "type", t, "source", id, "id", c.ID)
	return c, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// ExportKey is the archive key of an exported component.
func ExportKey(t model.ComponentType, name string, id int64) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "component"
	}
	return fmt.Sprintf("%s/%s-%d.json", t, slug, id)
}

// Envelope wraps a component in the portable export format. The export time
// is the component's last update.
func Envelope(t model.ComponentType, c *model.Component) model.ExportEnvelope {
	return model.ExportEnvelope{
		ExportVersion: model.ExportVersion,
		ComponentType: t,
		Name:          c.Name,
		Description:   c.Description,
		Data:          c.ComponentData,
		ExportedAt:    c.UpdatedAt,
	}
}

// ExportComponent writes the component's envelope to the archive and returns
// its key.
func (s *Service) ExportComponent(ctx context.Context, t model.ComponentType, id int64) (string, error) {
	if s.archive == nil {
		return "", ErrNoArchive
	}
	c, err := s.Component(ctx, t, id)
	if err != nil {
		return "", err
	}
	body, err := json.MarshalIndent(Envelope(t, c), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	key := ExportKey(t, c.Name, c.ID)
	if err := s.archive.Put(ctx, key, bytes.NewReader(body), int64(len(body))); err != nil {
		return "", fmt.Errorf("writing export %s: %w", key, err)
	}
	s.logger.Info("component exported", "type", t, "id", id, "key", key)
	return key, nil
}

// Exports lists archived envelopes, optionally limited to one type.
func (s *Service) Exports(ctx context.Context, t model.ComponentType) ([]string, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	prefix := ""
	if t != "" {
		prefix = string(t) + "/"
	}
	keys, err := s.archive.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	return keys, nil
}

// ImportComponent creates a component from the envelope stored under key.
func (s *Service) ImportComponent(ctx context.Context, t model.ComponentType, key string) (*model.Component, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	var buf bytes.Buffer
	if err := s.archive.Get(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("reading export %s: %w", key, err)
	}
	return s.ImportEnvelope(ctx, t, &buf)
}

// ImportEnvelope creates a component from an envelope read from r. The
// envelope's type must match t and it must carry data.
func (s *Service) ImportEnvelope(ctx context.Context, t model.ComponentType, r io.Reader) (*model.Component, error) {
	var env model.ExportEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, validationError("decoding envelope: %v", err)
	}
	if env.ComponentType != t {
		return nil, validationError("import type mismatch: expected %s, got %s", t, env.ComponentType)
	}
	if len(bytes.TrimSpace(env.Data)) == 0 || string(bytes.TrimSpace(env.Data)) == "null" {
		return nil, validationError("import data missing component data")
	}
	if env.ExportVersion != "" && env.ExportVersion != model.ExportVersion {
		return nil, validationError("unsupported export version %q", env.ExportVersion)
	}

	in := model.ComponentInput{
		Name:          env.Name,
		Description:   env.Description,
		ComponentData: env.Data,
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = "Imported " + string(t)
	}
	if in.Description == "" {
		in.Description = "Imported from external source"
	}
	return s.CreateComponent(ctx, t, in)
}
