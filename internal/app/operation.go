package app

// Operation tracks the CLI command being run. Operations are created in
// memory with ID=0. Only commands that change remote or local state persist
// them, which gives them an id from the operation log.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success" or "error"
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Finish records the outcome of the command. A nil err keeps "success".
func (op *Operation) Finish(err error) {
	if err != nil {
		op.Status = "error"
	}
}
