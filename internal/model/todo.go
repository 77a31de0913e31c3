package model

import (
	"encoding/json"
	"fmt"
)

// TodoStatus is the lifecycle state of a todo.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// ParseTodoStatus validates a status string.
func ParseTodoStatus(s string) (TodoStatus, error) {
	switch st := TodoStatus(s); st {
	case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown todo status: %q", s)
}

// TodoPriority ranks a todo.
type TodoPriority string

const (
	PriorityLow    TodoPriority = "low"
	PriorityMedium TodoPriority = "medium"
	PriorityHigh   TodoPriority = "high"
	PriorityUrgent TodoPriority = "urgent"
)

// ParseTodoPriority validates a priority string. The empty string maps to
// PriorityMedium.
func ParseTodoPriority(s string) (TodoPriority, error) {
	switch p := TodoPriority(s); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("unknown todo priority: %q", s)
}

// TodoCategories are the categories offered when creating a todo.
var TodoCategories = []string{
	"Maintenance", "Upgrade", "Repair", "Inspection", "Alignment",
	"Tire Rotation", "Oil Change", "Tuning", "Other",
}

// Todo is a task attached to a build.
type Todo struct {
	ID            int64           `json:"id"`
	BuildID       int64           `json:"build_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	Priority      TodoPriority    `json:"priority"`
	Status        TodoStatus      `json:"status"`
	DueDate       string          `json:"due_date,omitempty"`
	EstimatedCost Amount          `json:"estimated_cost,omitempty"`
	CustomFields  json.RawMessage `json:"custom_fields,omitempty"`
	SortOrder     int             `json:"sort_order"`
	CreatedAt     Timestamp       `json:"created_at"`
	UpdatedAt     Timestamp       `json:"updated_at"`

	CompletedAt             *Timestamp `json:"completed_at,omitempty"`
	CompletionNotes         string     `json:"completion_notes,omitempty"`
	OdometerAtCompletion    Amount     `json:"odometer_at_completion,omitempty"`
	EngineHoursAtCompletion Amount     `json:"engine_hours_at_completion,omitempty"`
	ActualCost              Amount     `json:"actual_cost,omitempty"`
	MaintenanceRecordID     *int64     `json:"maintenance_record_id,omitempty"`

	// MaintenanceType is joined in from the linked maintenance record.
	MaintenanceType string `json:"maintenance_type,omitempty"`
}

// Active reports whether the todo belongs in the active group.
func (t *Todo) Active() bool {
	return t.Status == TodoPending || t.Status == TodoInProgress
}

// TodoFilter narrows a todo listing. Empty fields do not filter.
type TodoFilter struct {
	Status   TodoStatus
	Category string
}

// TodoInput is the body of a todo create.
type TodoInput struct {
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	Priority      TodoPriority    `json:"priority"`
	DueDate       string          `json:"due_date,omitempty"`
	EstimatedCost *float64        `json:"estimated_cost,omitempty"`
	CustomFields  json.RawMessage `json:"custom_fields,omitempty"`
}

// TodoCreated is the backend response to a todo create.
type TodoCreated struct {
	Success   bool      `json:"success"`
	ID        int64     `json:"id"`
	CreatedAt Timestamp `json:"created_at"`
	Message   string    `json:"message,omitempty"`
}

// TodoPatch is a generic field patch. Nil fields are left untouched.
type TodoPatch struct {
	Title         *string         `json:"title,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Category      *string         `json:"category,omitempty"`
	Priority      *TodoPriority   `json:"priority,omitempty"`
	Status        *TodoStatus     `json:"status,omitempty"`
	DueDate       *string         `json:"due_date,omitempty"`
	EstimatedCost *float64        `json:"estimated_cost,omitempty"`
	CustomFields  json.RawMessage `json:"custom_fields,omitempty"`
	SortOrder     *int            `json:"sort_order,omitempty"`
}

// TodoCompletion is the body of the dedicated complete endpoint.
type TodoCompletion struct {
	CompletionNotes         string   `json:"completion_notes,omitempty"`
	OdometerAtCompletion    *float64 `json:"odometer_at_completion,omitempty"`
	EngineHoursAtCompletion *float64 `json:"engine_hours_at_completion,omitempty"`
	ActualCost              *float64 `json:"actual_cost,omitempty"`
	CreateMaintenanceRecord bool     `json:"create_maintenance_record"`
}

// TodoCompletionResult is the backend response to a completion.
type TodoCompletionResult struct {
	Success             bool   `json:"success"`
	Message             string `json:"message,omitempty"`
	MaintenanceRecordID *int64 `json:"maintenance_record_id,omitempty"`
}

// TodoStats summarises the todos of one build.
type TodoStats struct {
	StatusCounts       map[string]int `json:"status_counts"`
	CategoryCounts     map[string]int `json:"category_counts"`
	OverdueCount       int            `json:"overdue_count"`
	TotalEstimatedCost float64        `json:"total_estimated_cost"`
	TotalActualCost    float64        `json:"total_actual_cost"`
}

// ComponentNote is a free-text annotation on one component of a build.
type ComponentNote struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	UserName   string     `json:"user_name"`
	Content    string     `json:"content"`
	Timestamp  Timestamp  `json:"timestamp"`
	LastEdited *Timestamp `json:"last_edited,omitempty"`
}
