package model

import (
	"encoding/json"
	"fmt"
)

// ComponentType names a component library table.
type ComponentType string

const (
	ComponentEngineInternals      ComponentType = "engine-internals"
	ComponentTransmission         ComponentType = "transmission"
	ComponentDifferential         ComponentType = "differential"
	ComponentSuspension           ComponentType = "suspension"
	ComponentTiresWheels          ComponentType = "tires-wheels"
	ComponentFrame                ComponentType = "frame"
	ComponentCabInterior          ComponentType = "cab-interior"
	ComponentBrakes               ComponentType = "brakes"
	ComponentFuelSystem           ComponentType = "fuel-system"
	ComponentInductionSystem      ComponentType = "induction-system"
	ComponentAdditionalComponents ComponentType = "additional-components"
)

// ComponentTypes lists every component type the backend knows.
var ComponentTypes = []ComponentType{
	ComponentEngineInternals,
	ComponentTransmission,
	ComponentDifferential,
	ComponentSuspension,
	ComponentTiresWheels,
	ComponentFrame,
	ComponentCabInterior,
	ComponentBrakes,
	ComponentFuelSystem,
	ComponentInductionSystem,
	ComponentAdditionalComponents,
}

// ParseComponentType validates a component type string.
func ParseComponentType(s string) (ComponentType, error) {
	for _, t := range ComponentTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown component type: %q", s)
}

// MaxComponentDataBytes caps the encoded size of a component payload.
const MaxComponentDataBytes = 1024 * 1024

// ExportVersion is the envelope format version written on export.
const ExportVersion = "1.0"

// Component is a reusable, user-owned component record.
type Component struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	IsTemplate    bool            `json:"is_template"`
	ComponentData json.RawMessage `json:"component_data"`
	DataSizeBytes int64           `json:"data_size_bytes"`
	CreatedAt     Timestamp       `json:"created_at"`
	UpdatedAt     Timestamp       `json:"updated_at"`
}

// ComponentInput is the body of a component create or update.
type ComponentInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	IsTemplate    bool            `json:"is_template"`
	ComponentData json.RawMessage `json:"component_data"`
}

// ExportEnvelope is the portable form of a component.
type ExportEnvelope struct {
	ExportVersion string          `json:"export_version"`
	ComponentType ComponentType   `json:"component_type"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Data          json.RawMessage `json:"data"`
	ExportedAt    Timestamp       `json:"exported_at"`
}

// SubscriptionStatus is the account's tier and usage.
type SubscriptionStatus struct {
	Tier                   string    `json:"tier"`
	Status                 string    `json:"status"`
	BuildsUsed             int       `json:"builds_used"`
	BuildsLimit            int       `json:"builds_limit"`
	BuildUsagePercentage   float64   `json:"build_usage_percentage"`
	StorageUsedBytes       int64     `json:"storage_used_bytes"`
	StorageUsedMB          float64   `json:"storage_used_mb"`
	StorageLimitBytes      int64     `json:"storage_limit_bytes"`
	StorageLimitMB         float64   `json:"storage_limit_mb"`
	StorageUsagePercentage float64   `json:"storage_usage_percentage"`
	StartDate              Timestamp `json:"start_date"`
	EndDate                Timestamp `json:"end_date"`
}

// Subscription tiers.
const (
	TierDefault = "default"
	TierPremier = "premier"
)
