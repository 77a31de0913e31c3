package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Section names one of the nested JSON documents a build carries. Its string
// value is the path segment the backend uses for the section's PUT endpoint.
type Section string

const (
	SectionEngineInternals      Section = "engine-internals"
	SectionSuspension           Section = "suspension"
	SectionRearDifferential     Section = "rear-differential"
	SectionTransmission         Section = "transmission"
	SectionFrame                Section = "frame"
	SectionCabInterior          Section = "cab-interior"
	SectionTiresWheels          Section = "tires-wheels"
	SectionBrakes               Section = "brakes"
	SectionAdditionalComponents Section = "additional-components"
)

// EditableSections are the sections with a dedicated PUT endpoint.
var EditableSections = []Section{
	SectionEngineInternals,
	SectionSuspension,
	SectionRearDifferential,
	SectionTransmission,
	SectionFrame,
	SectionCabInterior,
	SectionTiresWheels,
}

// AllSections lists every section that appears in a build document and in
// the snapshot comparison set.
var AllSections = append(append([]Section{}, EditableSections...), SectionBrakes, SectionAdditionalComponents)

// Field returns the build document key holding the section, e.g.
// "engine_internals_json".
func (s Section) Field() string {
	b := []byte(s)
	for i := range b {
		if b[i] == '-' {
			b[i] = '_'
		}
	}
	return string(b) + "_json"
}

// Editable reports whether the section can be written with PutSection.
func (s Section) Editable() bool {
	for _, e := range EditableSections {
		if e == s {
			return true
		}
	}
	return false
}

// ParseSection accepts either the endpoint name ("cab-interior") or the
// document key ("cab_interior_json").
func ParseSection(raw string) (Section, error) {
	for _, s := range AllSections {
		if string(s) == raw || s.Field() == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section: %q", raw)
}

// BuildFields are the scalar build fields the backend accepts on create and
// partial update.
var BuildFields = []string{
	"name", "use_type", "fuel_type", "notes",
	"target_hp", "target_torque", "rev_limit_rpm",
	"displacement_ci", "bore_in", "stroke_in", "rod_len_in", "deck_clear_in",
	"piston_cc", "chamber_cc", "gasket_bore_in", "gasket_thickness_in", "quench_in",
	"static_cr", "dynamic_cr", "balance_oz", "flywheel_teeth", "firing_order",
	"camshaft_model", "camshaft_duration_int", "camshaft_duration_exh",
	"camshaft_lift_int", "camshaft_lift_exh", "camshaft_lsa",
	"ring_gap_top_in", "ring_gap_second_in", "ring_gap_oil_in",
	"cam_bearing_clearance_in",
	"vehicle_year", "vehicle_make", "vehicle_model", "vehicle_trim", "vin", "vehicle_weight_lbs",
	"transmission_type", "transmission_model", "transmission_gears", "final_drive_ratio",
	"suspension_front", "suspension_rear", "spring_rate_front", "spring_rate_rear",
	"sway_bar_front", "sway_bar_rear",
	"tire_size_front", "tire_size_rear", "tire_brand", "tire_model",
	"wheel_size_front", "wheel_size_rear",
	"engine_oil_type", "engine_oil_weight", "engine_oil_capacity",
	"transmission_fluid_type", "differential_fluid_type", "coolant_type",
}

// IsBuildField reports whether name is a known scalar build field.
func IsBuildField(name string) bool {
	for _, f := range BuildFields {
		if f == name {
			return true
		}
	}
	return false
}

// Build is a top-level build record. Identity and ownership fields are typed;
// the remaining scalar specs and the nested section documents are kept keyed by
// their wire names so that every field the backend returns survives a round trip.
type Build struct {
	ID        int64
	UserID    int64
	Name      string
	Slug      string
	FirstName string
	LastName  string
	Email     string
	CreatedAt string
	UpdatedAt string

	Specs    map[string]any
	Sections map[Section]json.RawMessage
}

// identityKeys are decoded into Build's typed fields.
var identityKeys = map[string]bool{
	"id": true, "user_id": true, "name": true, "slug": true,
	"first_name": true, "last_name": true, "email": true,
	"created_at": true, "updated_at": true,
}

// relationKeys belong to BuildDetail and are skipped by Build.
var relationKeys = map[string]bool{
	"vehicle": true, "drivetrain": true, "engine_parts": true, "vehicle_parts": true,
	"tuning": true, "maintenance": true, "performance": true,
}

func (b *Build) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding build: %w", err)
	}

	var ident struct {
		ID        int64  `json:"id"`
		UserID    int64  `json:"user_id"`
		Name      string `json:"name"`
		Slug      string `json:"slug"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &ident); err != nil {
		return fmt.Errorf("decoding build identity: %w", err)
	}

	*b = Build{
		ID:        ident.ID,
		UserID:    ident.UserID,
		Name:      ident.Name,
		Slug:      ident.Slug,
		FirstName: ident.FirstName,
		LastName:  ident.LastName,
		Email:     ident.Email,
		CreatedAt: ident.CreatedAt,
		UpdatedAt: ident.UpdatedAt,
		Specs:     make(map[string]any),
		Sections:  make(map[Section]json.RawMessage),
	}

	for key, value := range raw {
		if identityKeys[key] || relationKeys[key] {
			continue
		}
		if s, err := ParseSection(key); err == nil && key == s.Field() {
			if !bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
				b.Sections[s] = append(json.RawMessage(nil), value...)
			}
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decoding build field %s: %w", key, err)
		}
		if v == nil {
			continue
		}
		b.Specs[key] = v
	}
	return nil
}

func (b Build) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.document())
}

// document flattens the build back into its wire shape.
func (b Build) document() map[string]any {
	doc := make(map[string]any, len(b.Specs)+len(b.Sections)+9)
	for k, v := range b.Specs {
		doc[k] = v
	}
	for s, raw := range b.Sections {
		doc[s.Field()] = raw
	}
	doc["id"] = b.ID
	doc["user_id"] = b.UserID
	doc["name"] = b.Name
	if b.Slug != "" {
		doc["slug"] = b.Slug
	}
	if b.FirstName != "" {
		doc["first_name"] = b.FirstName
	}
	if b.LastName != "" {
		doc["last_name"] = b.LastName
	}
	if b.Email != "" {
		doc["email"] = b.Email
	}
	if b.CreatedAt != "" {
		doc["created_at"] = b.CreatedAt
	}
	if b.UpdatedAt != "" {
		doc["updated_at"] = b.UpdatedAt
	}
	return doc
}

// SpecKeys returns the populated scalar spec keys in sorted order.
func (b *Build) SpecKeys() []string {
	keys := make([]string, 0, len(b.Specs))
	for k := range b.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Section returns the decoded section document, or an empty document when the
// build does not carry one yet.
func (b *Build) Section(s Section) (map[string]any, error) {
	raw, ok := b.Sections[s]
	if !ok || len(raw) == 0 {
		return map[string]any{}, nil
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding section %s: %w", s, err)
	}
	return doc, nil
}

// OwnedBy reports whether the build belongs to user.
func (b *Build) OwnedBy(user *User) bool {
	return user != nil && b.UserID == user.ID
}

// BuildDetail is a build plus everything the detail view shows.
type BuildDetail struct {
	Build

	Vehicle      json.RawMessage
	Drivetrain   json.RawMessage
	Tuning       json.RawMessage
	EngineParts  []Part
	VehicleParts []Part
	Maintenance  []MaintenanceRecord
	Performance  []json.RawMessage
}

type buildRelations struct {
	Vehicle      json.RawMessage     `json:"vehicle,omitempty"`
	Drivetrain   json.RawMessage     `json:"drivetrain,omitempty"`
	Tuning       json.RawMessage     `json:"tuning,omitempty"`
	EngineParts  []Part              `json:"engine_parts"`
	VehicleParts []Part              `json:"vehicle_parts"`
	Maintenance  []MaintenanceRecord `json:"maintenance"`
	Performance  []json.RawMessage   `json:"performance"`
}

func (d *BuildDetail) UnmarshalJSON(data []byte) error {
	if err := d.Build.UnmarshalJSON(data); err != nil {
		return err
	}
	var rel buildRelations
	if err := json.Unmarshal(data, &rel); err != nil {
		return fmt.Errorf("decoding build relations: %w", err)
	}
	d.Vehicle = rel.Vehicle
	d.Drivetrain = rel.Drivetrain
	d.Tuning = rel.Tuning
	d.EngineParts = rel.EngineParts
	d.VehicleParts = rel.VehicleParts
	d.Maintenance = rel.Maintenance
	d.Performance = rel.Performance
	return nil
}

func (d BuildDetail) MarshalJSON() ([]byte, error) {
	doc := d.Build.document()
	if len(d.Vehicle) > 0 {
		doc["vehicle"] = d.Vehicle
	}
	if len(d.Drivetrain) > 0 {
		doc["drivetrain"] = d.Drivetrain
	}
	if len(d.Tuning) > 0 {
		doc["tuning"] = d.Tuning
	}
	doc["engine_parts"] = nonNil(d.EngineParts)
	doc["vehicle_parts"] = nonNil(d.VehicleParts)
	doc["maintenance"] = nonNil(d.Maintenance)
	doc["performance"] = nonNil(d.Performance)
	return json.Marshal(doc)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
