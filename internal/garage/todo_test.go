package garage_test

import (
	"context"
	"errors"
	"testing"

	"garage-go/internal/garage"
	"garage-go/internal/model"
	"garage-go/internal/testutil"
)

func newBoard(t *testing.T) (*env, *garage.TodoBoard, int64) {
	t.Helper()
	e := newEnv(t)
	b := e.backend.AddBuild(e.user.ID, "Truck", nil, nil)
	board := garage.NewTodoBoard(e.backend, b.ID, nil)
	return e, board, b.ID
}

func TestTodoBoard_Load(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	e.backend.AddTodo(buildID, model.Todo{Title: "Pending", Status: model.TodoPending})
	e.backend.AddTodo(buildID, model.Todo{Title: "Working", Status: model.TodoInProgress})
	e.backend.AddTodo(buildID, model.Todo{Title: "Done", Status: model.TodoCompleted})
	e.backend.AddTodo(buildID, model.Todo{Title: "Dropped", Status: model.TodoCancelled})

	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(board.Active()); got != 2 {
		t.Errorf("Active() len = %d, want 2", got)
	}
	if got := len(board.Completed()); got != 1 {
		t.Errorf("Completed() len = %d, want 1", got)
	}
	if got := board.Cancelled(); got != nil {
		t.Errorf("Cancelled() = %v, want hidden without filter", got)
	}
	if !board.Stats.Present() {
		t.Error("Stats absent, want loaded")
	}

	board.Filter = model.TodoFilter{Status: model.TodoCancelled}
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load(cancelled) error = %v", err)
	}
	if got := board.Cancelled(); len(got) != 1 || got[0].Title != "Dropped" {
		t.Errorf("Cancelled() = %+v", got)
	}
}

func TestTodoBoard_Load_statsFailure(t *testing.T) {
	e, board, buildID := newBoard(t)
	e.backend.AddTodo(buildID, model.Todo{Title: "Pending"})
	e.backend.Fail("TodoStats", errors.New("stats offline"))

	if err := board.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v, want stats failure tolerated", err)
	}
	if board.Stats.Present() {
		t.Error("Stats present, want absent")
	}
	if len(board.Todos) != 1 {
		t.Errorf("Todos len = %d, want 1", len(board.Todos))
	}
}

func TestTodoBoard_Load_listFailureKeepsPrevious(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	e.backend.AddTodo(buildID, model.Todo{Title: "Pending"})
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	e.backend.Fail("ListTodos", errors.New("offline"))
	if err := board.Load(ctx); err == nil {
		t.Fatal("Load() expected error")
	}
	if len(board.Todos) != 1 {
		t.Errorf("Todos len = %d, want previous list kept", len(board.Todos))
	}
}

func TestTodoBoard_Create(t *testing.T) {
	e, board, _ := newBoard(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      model.TodoInput
		wantErr error
	}{
		{name: "blank title", in: model.TodoInput{Title: "   "}, wantErr: garage.ErrValidation},
		{name: "bad priority", in: model.TodoInput{Title: "x", Priority: "whenever"}, wantErr: garage.ErrValidation},
		{name: "defaults", in: model.TodoInput{Title: " Rotate tires "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.backend.ResetCalls()
			_, err := board.Create(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				if n := e.backend.Calls("CreateTodo"); n != 0 {
					t.Errorf("CreateTodo calls = %d, want 0", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if len(board.Todos) != 1 {
				t.Fatalf("Todos len = %d, want 1", len(board.Todos))
			}
			got := board.Todos[0]
			if got.Title != "Rotate tires" || got.Priority != model.PriorityMedium || got.Status != model.TodoPending {
				t.Errorf("created todo = %+v", got)
			}
		})
	}
}

// Every successful mutation reloads the list and the stats exactly once.
func TestTodoBoard_reloadsOnce(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status model.TodoStatus
		mutate func(*garage.TodoBoard, int64) error
	}{
		{name: "start", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Start(ctx, id)
		}},
		{name: "pause", status: model.TodoInProgress, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Pause(ctx, id)
		}},
		{name: "cancel", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Cancel(ctx, id)
		}},
		{name: "complete", status: model.TodoInProgress, mutate: func(b *garage.TodoBoard, id int64) error {
			_, err := b.Complete(ctx, id, model.TodoCompletion{})
			return err
		}},
		{name: "reopen", status: model.TodoCompleted, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Reopen(ctx, id)
		}},
		{name: "update", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			title := "Renamed"
			return b.Update(ctx, id, model.TodoPatch{Title: &title})
		}},
		{name: "delete", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Delete(ctx, id, testutil.Confirming())
		}},
		{name: "reorder", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Reorder(ctx, []int64{id})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, board, buildID := newBoard(t)
			todo := e.backend.AddTodo(buildID, model.Todo{Title: "Task", Status: tt.status})
			if err := board.Load(ctx); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			e.backend.ResetCalls()

			if err := tt.mutate(board, todo.ID); err != nil {
				t.Fatalf("mutation error = %v", err)
			}
			if n := e.backend.Calls("ListTodos"); n != 1 {
				t.Errorf("ListTodos calls = %d, want 1", n)
			}
			if n := e.backend.Calls("TodoStats"); n != 1 {
				t.Errorf("TodoStats calls = %d, want 1", n)
			}
		})
	}
}

func TestTodoBoard_transitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status model.TodoStatus
		mutate func(*garage.TodoBoard, int64) error
	}{
		{name: "start in progress", status: model.TodoInProgress, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Start(ctx, id)
		}},
		{name: "pause pending", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Pause(ctx, id)
		}},
		{name: "start completed", status: model.TodoCompleted, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Start(ctx, id)
		}},
		{name: "cancel completed", status: model.TodoCompleted, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Cancel(ctx, id)
		}},
		{name: "complete cancelled", status: model.TodoCancelled, mutate: func(b *garage.TodoBoard, id int64) error {
			_, err := b.Complete(ctx, id, model.TodoCompletion{})
			return err
		}},
		{name: "reopen pending", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			return b.Reopen(ctx, id)
		}},
		{name: "patch to completed", status: model.TodoPending, mutate: func(b *garage.TodoBoard, id int64) error {
			st := model.TodoCompleted
			return b.Update(ctx, id, model.TodoPatch{Status: &st})
		}},
		{name: "patch completed to in progress", status: model.TodoCompleted, mutate: func(b *garage.TodoBoard, id int64) error {
			st := model.TodoInProgress
			return b.Update(ctx, id, model.TodoPatch{Status: &st})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, board, buildID := newBoard(t)
			todo := e.backend.AddTodo(buildID, model.Todo{Title: "Task", Status: tt.status})
			if err := board.Load(ctx); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			e.backend.ResetCalls()

			if err := tt.mutate(board, todo.ID); !errors.Is(err, garage.ErrInvalidTransition) {
				t.Fatalf("error = %v, want ErrInvalidTransition", err)
			}
			if e.backend.Calls("UpdateTodo")+e.backend.Calls("CompleteTodo")+e.backend.Calls("ReopenTodo") != 0 {
				t.Error("a rejected transition reached the backend")
			}
			if got := e.backend.Todo(todo.ID).Status; got != tt.status {
				t.Errorf("status = %q, want unchanged %q", got, tt.status)
			}
		})
	}
}

func TestTodoBoard_ReopenHidesCompletion(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	todo := e.backend.AddTodo(buildID, model.Todo{Title: "Oil change", Category: "Oil Change"})
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	miles, cost := 42000.0, 55.25
	res, err := board.Complete(ctx, todo.ID, model.TodoCompletion{
		CompletionNotes:         "5 quarts",
		OdometerAtCompletion:    &miles,
		ActualCost:              &cost,
		CreateMaintenanceRecord: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.MaintenanceRecordID == nil {
		t.Fatal("MaintenanceRecordID = nil")
	}
	done := board.Completed()
	if len(done) != 1 || done[0].CompletionNotes != "5 quarts" || done[0].CompletedAt == nil {
		t.Fatalf("Completed() = %+v", done)
	}

	if err := board.Reopen(ctx, todo.ID); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}

	// The server keeps the old completion fields.
	stored := e.backend.Todo(todo.ID)
	if stored.CompletionNotes != "5 quarts" {
		t.Fatalf("backend CompletionNotes = %q, want kept", stored.CompletionNotes)
	}

	active := board.Active()
	if len(active) != 1 {
		t.Fatalf("Active() len = %d, want 1", len(active))
	}
	got := active[0]
	if got.CompletedAt != nil || got.CompletionNotes != "" || got.OdometerAtCompletion != "" || got.ActualCost != "" {
		t.Errorf("reopened todo shows completion data: %+v", got)
	}
	if got.MaintenanceRecordID == nil || *got.MaintenanceRecordID != *res.MaintenanceRecordID {
		t.Errorf("MaintenanceRecordID = %v, want link kept", got.MaintenanceRecordID)
	}
	if n := len(e.backend.MaintenanceRecords(buildID)); n != 1 {
		t.Errorf("maintenance records = %d, want 1 kept after reopen", n)
	}
}

func TestTodoBoard_ReopenCancelled(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	todo := e.backend.AddTodo(buildID, model.Todo{Title: "Task", Status: model.TodoCancelled})

	if err := board.Reopen(ctx, todo.ID); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if got := e.backend.Todo(todo.ID).Status; got != model.TodoPending {
		t.Errorf("status = %q, want pending", got)
	}
	if n := e.backend.Calls("GetTodo"); n != 1 {
		t.Errorf("GetTodo calls = %d, want 1 for a todo not on the board", n)
	}
}

func TestTodoBoard_Update(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	todo := e.backend.AddTodo(buildID, model.Todo{Title: "Task"})
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	blank := " "
	if err := board.Update(ctx, todo.ID, model.TodoPatch{Title: &blank}); !errors.Is(err, garage.ErrValidation) {
		t.Errorf("Update(blank title) error = %v, want ErrValidation", err)
	}
	empty := model.TodoPriority("")
	if err := board.Update(ctx, todo.ID, model.TodoPatch{Priority: &empty}); !errors.Is(err, garage.ErrValidation) {
		t.Errorf("Update(empty priority) error = %v, want ErrValidation", err)
	}

	prio := model.PriorityUrgent
	same := model.TodoPending
	if err := board.Update(ctx, todo.ID, model.TodoPatch{Priority: &prio, Status: &same}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := e.backend.Todo(todo.ID).Priority; got != model.PriorityUrgent {
		t.Errorf("Priority = %q, want urgent", got)
	}
}

func TestTodoBoard_Delete(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	todo := e.backend.AddTodo(buildID, model.Todo{Title: "Task"})

	if err := board.Delete(ctx, todo.ID, testutil.Declining()); !errors.Is(err, garage.ErrDeclined) {
		t.Fatalf("Delete() error = %v, want ErrDeclined", err)
	}
	if e.backend.Todo(todo.ID) == nil {
		t.Fatal("declined delete removed the todo")
	}

	if err := board.Delete(ctx, todo.ID, testutil.Confirming()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if e.backend.Todo(todo.ID) != nil {
		t.Error("todo still stored after delete")
	}
}

func TestTodoBoard_Reorder(t *testing.T) {
	e, board, buildID := newBoard(t)
	ctx := context.Background()
	a := e.backend.AddTodo(buildID, model.Todo{Title: "A", SortOrder: 0})
	b := e.backend.AddTodo(buildID, model.Todo{Title: "B", SortOrder: 1})

	if err := board.Reorder(ctx, nil); !errors.Is(err, garage.ErrValidation) {
		t.Errorf("Reorder(nil) error = %v, want ErrValidation", err)
	}
	if err := board.Reorder(ctx, []int64{a.ID, a.ID}); !errors.Is(err, garage.ErrValidation) {
		t.Errorf("Reorder(dup) error = %v, want ErrValidation", err)
	}

	if err := board.Reorder(ctx, []int64{b.ID, a.ID}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if len(board.Todos) != 2 || board.Todos[0].ID != b.ID {
		t.Errorf("order after reorder = %+v", board.Todos)
	}
}
