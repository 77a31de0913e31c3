package garage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"garage-go/internal/model"
)

// MaintenanceForm is the editable state of a new maintenance record. The
// subtotal and total are derived on every read, so each setter is reflected
// immediately.
type MaintenanceForm struct {
	MaintenanceType string
	EventDate       string
	Notes           string
	OdometerMiles   string
	EngineHours     string
	Labor           string
	Parts           []PartLine
}

// AddPart appends an empty part line and returns its index.
func (f *MaintenanceForm) AddPart() int {
	f.Parts = append(f.Parts, PartLine{})
	return len(f.Parts) - 1
}

// RemovePart drops the line at i.
func (f *MaintenanceForm) RemovePart(i int) {
	if i < 0 || i >= len(f.Parts) {
		return
	}
	f.Parts = append(f.Parts[:i], f.Parts[i+1:]...)
}

func (f *MaintenanceForm) SetQuantity(i int, v string) {
	if i >= 0 && i < len(f.Parts) {
		f.Parts[i].Quantity = v
	}
}

func (f *MaintenanceForm) SetCostPerUnit(i int, v string) {
	if i >= 0 && i < len(f.Parts) {
		f.Parts[i].CostPerUnit = v
	}
}

func (f *MaintenanceForm) SetLabor(v string) { f.Labor = v }

// LineTotal is the displayed total of line i; see LineTotal.
func (f *MaintenanceForm) LineTotal(i int) (decimal.Decimal, bool) {
	if i < 0 || i >= len(f.Parts) {
		return decimal.Zero, false
	}
	return LineTotal(f.Parts[i])
}

// Subtotal is the parts subtotal.
func (f *MaintenanceForm) Subtotal() decimal.Decimal {
	return PartsSubtotal(f.Parts)
}

// Total is the parts subtotal plus labor.
func (f *MaintenanceForm) Total() decimal.Decimal {
	return MaintenanceTotal(f.Parts, f.Labor)
}

// Validate checks the fields the backend requires.
func (f *MaintenanceForm) Validate() error {
	if strings.TrimSpace(f.MaintenanceType) == "" {
		return validationError("maintenance type is required")
	}
	if strings.TrimSpace(f.EventDate) == "" {
		return validationError("event date is required")
	}
	for _, field := range []struct{ name, value string }{
		{"odometer", f.OdometerMiles},
		{"engine hours", f.EngineHours},
	} {
		if field.value == "" {
			continue
		}
		if _, ok := parseAmount(field.value); !ok {
			return validationError("%s must be a number, got %q", field.name, field.value)
		}
	}
	return nil
}

// Input builds the request body: the parts are flattened into the notes, the
// total becomes the record cost, and the first part fills the single-part
// fields.
func (f *MaintenanceForm) Input() (model.MaintenanceInput, error) {
	if err := f.Validate(); err != nil {
		return model.MaintenanceInput{}, err
	}

	flat := FlattenParts(f.Parts, f.Notes)
	in := model.MaintenanceInput{
		MaintenanceType: strings.TrimSpace(f.MaintenanceType),
		EventDate:       strings.TrimSpace(f.EventDate),
		Notes:           flat.Notes,
		Brand:           flat.Brand,
		PartNumber:      flat.PartNumber,
		OdometerMiles:   optionalFloat(f.OdometerMiles),
		EngineHours:     optionalFloat(f.EngineHours),
	}
	if total := f.Total(); !total.IsZero() {
		v := total.InexactFloat64()
		in.Cost = &v
	}
	if flat.Quantity != "" {
		in.Quantity = optionalFloat(flat.Quantity)
	}
	return in, nil
}

func optionalFloat(s string) *float64 {
	d, ok := parseAmount(s)
	if !ok {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

// MaintenanceResult reports what RecordMaintenance created.
type MaintenanceResult struct {
	Record      *model.MaintenanceCreated
	Attachments []*model.Attachment
}

// RecordMaintenance creates a maintenance record from the form, then uploads
// each attachment against it. Directories are expanded; recursive includes
// their subdirectories. Upload failures stop at the first error; the record
// itself is kept.
func (s *Service) RecordMaintenance(ctx context.Context, buildID int64, form *MaintenanceForm, attachments []*Path, recursive bool) (*MaintenanceResult, error) {
	in, err := form.Input()
	if err != nil {
		return nil, err
	}

	files, err := s.expandUploads(attachments, recursive)
	if err != nil {
		return nil, err
	}

	created, err := s.backend.CreateMaintenance(ctx, buildID, in)
	if err != nil {
		return nil, fmt.Errorf("creating maintenance record: %w", err)
	}
	s.logger.Info("maintenance recorded", "build", buildID, "id", created.ID, "type", in.MaintenanceType)

	result := &MaintenanceResult{Record: created}
	description := "Attachment for " + in.MaintenanceType
	for _, p := range files {
		att, err := s.uploadAttachment(ctx, created.ID, p, description)
		if err != nil {
			return result, err
		}
		result.Attachments = append(result.Attachments, att)
	}
	return result, nil
}

// AttachFiles uploads files to an existing maintenance record.
func (s *Service) AttachFiles(ctx context.Context, maintenanceID int64, paths []*Path, recursive bool, description string) ([]*model.Attachment, error) {
	files, err := s.expandUploads(paths, recursive)
	if err != nil {
		return nil, err
	}
	var out []*model.Attachment
	for _, p := range files {
		att, err := s.uploadAttachment(ctx, maintenanceID, p, description)
		if err != nil {
			return out, err
		}
		out = append(out, att)
	}
	return out, nil
}

// Attachments lists the files uploaded against a maintenance record.
func (s *Service) Attachments(ctx context.Context, maintenanceID int64) ([]model.Attachment, error) {
	atts, err := s.backend.ListAttachments(ctx, maintenanceID)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	return atts, nil
}

func (s *Service) uploadAttachment(ctx context.Context, maintenanceID int64, p *Path, description string) (*model.Attachment, error) {
	var att *model.Attachment
	err := s.withFile(p, func(name string, r io.Reader) error {
		var err error
		att, err = s.backend.UploadAttachment(ctx, maintenanceID, name, description, r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", p.String(), err)
	}
	s.logger.Info("attachment uploaded", "maintenance", maintenanceID, "path", p.String())
	return att, nil
}

// expandUploads replaces directories with the files under them, skipping
// ignored files.
func (s *Service) expandUploads(paths []*Path, recursive bool) ([]*Path, error) {
	if len(paths) > 0 && s.fsmgr == nil {
		return nil, ErrNoFilesystem
	}
	var files []*Path
	for _, p := range paths {
		if !p.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := s.fsmgr.FindFiles(p, recursive)
		if err != nil {
			return nil, fmt.Errorf("finding files: %w", err)
		}
		for _, f := range found {
			ignored, err := s.fsmgr.IsIgnored(f, p.String())
			if err != nil {
				return nil, fmt.Errorf("checking ignore rules: %w", err)
			}
			if ignored {
				s.logger.Debug("upload skipped", "path", f.String())
				continue
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// withFile opens p and hands its base name and content to fn.
func (s *Service) withFile(p *Path, fn func(name string, r io.Reader) error) error {
	if s.fsmgr == nil {
		return ErrNoFilesystem
	}
	rc, err := s.fsmgr.Open(p)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer rc.Close()
	return fn(filepath.Base(p.String()), rc)
}
