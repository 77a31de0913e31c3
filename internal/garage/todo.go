package garage

import (
	"context"
	"fmt"
	"strings"

	"garage-go/internal/model"
)

// todoTransitions lists the status changes a user can make. Deletion is
// allowed from any state and is not a transition.
var todoTransitions = map[model.TodoStatus][]model.TodoStatus{
	model.TodoPending:    {model.TodoInProgress, model.TodoCompleted, model.TodoCancelled},
	model.TodoInProgress: {model.TodoPending, model.TodoCompleted, model.TodoCancelled},
	model.TodoCompleted:  {model.TodoPending},
	model.TodoCancelled:  {model.TodoPending},
}

func checkTransition(from, to model.TodoStatus) error {
	for _, allowed := range todoTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// TodoBoard is the todo list of one build with its stats summary. Every
// successful mutation reloads both from the server exactly once.
type TodoBoard struct {
	api     TodoAPI
	logger  Logger
	buildID int64

	Filter model.TodoFilter
	Todos  []model.Todo

	// Stats is absent when the summary could not be loaded.
	Stats Optional[model.TodoStats]
}

func NewTodoBoard(api TodoAPI, buildID int64, logger Logger) *TodoBoard {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &TodoBoard{api: api, logger: logger, buildID: buildID}
}

// Load fetches the filtered list and the stats summary. A failed list keeps
// the previous list on display; a failed summary leaves Stats absent.
func (b *TodoBoard) Load(ctx context.Context) error {
	todos, err := b.api.ListTodos(ctx, b.buildID, b.Filter)
	if err != nil {
		return fmt.Errorf("loading todos: %w", err)
	}
	for i := range todos {
		clearCompletion(&todos[i])
	}
	b.Todos = todos
	b.Stats = LoadOptional(ctx, b.logger, "todo stats", func(ctx context.Context) (*model.TodoStats, error) {
		return b.api.TodoStats(ctx, b.buildID)
	})
	return nil
}

// clearCompletion hides completion metadata on todos that are not completed.
// The backend keeps the notes and readings after a reopen; the board never
// shows them. The link to a maintenance record created at completion stays,
// as the record does.
func clearCompletion(t *model.Todo) {
	if t.Status == model.TodoCompleted {
		return
	}
	t.CompletedAt = nil
	t.CompletionNotes = ""
	t.OdometerAtCompletion = ""
	t.EngineHoursAtCompletion = ""
	t.ActualCost = ""
}

// Active returns the pending and in-progress todos.
func (b *TodoBoard) Active() []model.Todo {
	return b.group(func(t *model.Todo) bool { return t.Active() })
}

// Completed returns the completed todos.
func (b *TodoBoard) Completed() []model.Todo {
	return b.group(func(t *model.Todo) bool { return t.Status == model.TodoCompleted })
}

// Cancelled returns the cancelled todos, but only when the status filter
// selects them. They are hidden otherwise.
func (b *TodoBoard) Cancelled() []model.Todo {
	if b.Filter.Status != model.TodoCancelled {
		return nil
	}
	return b.group(func(t *model.Todo) bool { return t.Status == model.TodoCancelled })
}

func (b *TodoBoard) group(keep func(*model.Todo) bool) []model.Todo {
	var out []model.Todo
	for i := range b.Todos {
		if keep(&b.Todos[i]) {
			out = append(out, b.Todos[i])
		}
	}
	return out
}

// Create adds a todo. The title is required; an empty priority means medium.
// New todos always start pending.
func (b *TodoBoard) Create(ctx context.Context, in model.TodoInput) (*model.TodoCreated, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, validationError("title is required")
	}
	prio, err := model.ParseTodoPriority(string(in.Priority))
	if err != nil {
		return nil, validationError("%v", err)
	}
	in.Priority = prio

	created, err := b.api.CreateTodo(ctx, b.buildID, in)
	if err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}
	b.logger.Info("todo created", "build", b.buildID, "id", created.ID)
	return created, b.Load(ctx)
}

// Start moves a pending todo to in progress.
func (b *TodoBoard) Start(ctx context.Context, todoID int64) error {
	return b.setStatus(ctx, todoID, model.TodoPending, model.TodoInProgress)
}

// Pause moves an in-progress todo back to pending.
func (b *TodoBoard) Pause(ctx context.Context, todoID int64) error {
	return b.setStatus(ctx, todoID, model.TodoInProgress, model.TodoPending)
}

// Cancel moves an open todo to cancelled.
func (b *TodoBoard) Cancel(ctx context.Context, todoID int64) error {
	return b.setStatus(ctx, todoID, "", model.TodoCancelled)
}

// setStatus patches the status. A non-empty from pins the state the todo
// must currently be in.
func (b *TodoBoard) setStatus(ctx context.Context, todoID int64, from, to model.TodoStatus) error {
	t, err := b.find(ctx, todoID)
	if err != nil {
		return err
	}
	if from != "" && t.Status != from {
		return fmt.Errorf("%w: todo %d is %s, not %s", ErrInvalidTransition, todoID, t.Status, from)
	}
	if err := checkTransition(t.Status, to); err != nil {
		return err
	}
	if err := b.api.UpdateTodo(ctx, todoID, model.TodoPatch{Status: &to}); err != nil {
		return fmt.Errorf("updating todo %d: %w", todoID, err)
	}
	b.logger.Info("todo status changed", "id", todoID, "from", t.Status, "to", to)
	return b.Load(ctx)
}

// Complete marks an open todo completed, optionally creating a linked
// maintenance record on the server.
func (b *TodoBoard) Complete(ctx context.Context, todoID int64, c model.TodoCompletion) (*model.TodoCompletionResult, error) {
	t, err := b.find(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(t.Status, model.TodoCompleted); err != nil {
		return nil, err
	}
	res, err := b.api.CompleteTodo(ctx, todoID, c)
	if err != nil {
		return nil, fmt.Errorf("completing todo %d: %w", todoID, err)
	}
	b.logger.Info("todo completed", "id", todoID, "maintenance_record", c.CreateMaintenanceRecord)
	return res, b.Load(ctx)
}

// Reopen moves a completed or cancelled todo back to pending. Any
// maintenance record created at completion is kept.
func (b *TodoBoard) Reopen(ctx context.Context, todoID int64) error {
	t, err := b.find(ctx, todoID)
	if err != nil {
		return err
	}
	if t.Status != model.TodoCompleted && t.Status != model.TodoCancelled {
		return fmt.Errorf("%w: todo %d is %s and cannot be reopened", ErrInvalidTransition, todoID, t.Status)
	}
	if err := b.api.ReopenTodo(ctx, todoID); err != nil {
		return fmt.Errorf("reopening todo %d: %w", todoID, err)
	}
	b.logger.Info("todo reopened", "id", todoID)
	return b.Load(ctx)
}

// Update applies a field patch. A status in the patch is checked against the
// lifecycle; completion must go through Complete.
func (b *TodoBoard) Update(ctx context.Context, todoID int64, patch model.TodoPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return validationError("title is required")
		}
		patch.Title = &title
	}
	if patch.Priority != nil {
		if _, err := model.ParseTodoPriority(string(*patch.Priority)); err != nil || *patch.Priority == "" {
			return validationError("invalid priority %q", *patch.Priority)
		}
	}
	if patch.Status != nil {
		if *patch.Status == model.TodoCompleted {
			return fmt.Errorf("%w: use complete to finish a todo", ErrInvalidTransition)
		}
		t, err := b.find(ctx, todoID)
		if err != nil {
			return err
		}
		if *patch.Status == t.Status {
			patch.Status = nil
		} else if err := checkTransition(t.Status, *patch.Status); err != nil {
			return err
		}
	}
	if err := b.api.UpdateTodo(ctx, todoID, patch); err != nil {
		return fmt.Errorf("updating todo %d: %w", todoID, err)
	}
	return b.Load(ctx)
}

// Delete removes a todo after confirmation.
func (b *TodoBoard) Delete(ctx context.Context, todoID int64, c Confirmer) error {
	if err := confirm(c, fmt.Sprintf("Delete todo %d? This cannot be undone.", todoID)); err != nil {
		return err
	}
	if err := b.api.DeleteTodo(ctx, todoID); err != nil {
		return fmt.Errorf("deleting todo %d: %w", todoID, err)
	}
	b.logger.Info("todo deleted", "id", todoID)
	return b.Load(ctx)
}

// Reorder sets the display order of the build's todos.
func (b *TodoBoard) Reorder(ctx context.Context, todoIDs []int64) error {
	if len(todoIDs) == 0 {
		return validationError("no todos to reorder")
	}
	seen := make(map[int64]bool, len(todoIDs))
	for _, id := range todoIDs {
		if seen[id] {
			return validationError("todo %d listed twice", id)
		}
		seen[id] = true
	}
	if err := b.api.ReorderTodos(ctx, b.buildID, todoIDs); err != nil {
		return fmt.Errorf("reordering todos: %w", err)
	}
	return b.Load(ctx)
}

// find returns the todo from the loaded list, falling back to the server for
// todos hidden by the filter.
func (b *TodoBoard) find(ctx context.Context, todoID int64) (*model.Todo, error) {
	for i := range b.Todos {
		if b.Todos[i].ID == todoID {
			return &b.Todos[i], nil
		}
	}
	t, err := b.api.GetTodo(ctx, todoID)
	if err != nil {
		return nil, fmt.Errorf("loading todo %d: %w", todoID, err)
	}
	return t, nil
}
