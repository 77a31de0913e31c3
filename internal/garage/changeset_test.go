package garage_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"garage-go/internal/garage"
	"garage-go/internal/model"
)

func TestChangeset_Set(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		ok    bool
	}{
		{name: "scalar", key: "displacement_ci", value: `350`, ok: true},
		{name: "section path", key: "suspension.front.springs", value: `"coil"`, ok: true},
		{name: "endpoint form", key: "cab-interior.seats", value: `"buckets"`, ok: true},
		{name: "unknown field", key: "horsepower", value: `400`},
		{name: "read-only section", key: "brakes.front", value: `"disc"`},
		{name: "unknown section", key: "engine.cam", value: `"big"`},
		{name: "empty segment", key: "suspension..springs", value: `"coil"`},
		{name: "invalid json", key: "vin", value: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := garage.NewChangeset(1)
			err := cs.Set(tt.key, json.RawMessage(tt.value))
			if tt.ok {
				if err != nil {
					t.Fatalf("Set() error = %v", err)
				}
				if cs.IsEmpty() {
					t.Error("IsEmpty() = true after Set")
				}
				return
			}
			if !errors.Is(err, garage.ErrValidation) {
				t.Fatalf("Set() error = %v, want ErrValidation", err)
			}
			if !cs.IsEmpty() {
				t.Error("rejected entry was recorded")
			}
		})
	}
}

func TestChangeset_entries(t *testing.T) {
	cs := garage.NewChangeset(9)
	_ = cs.Set("vin", json.RawMessage(`"1FT"`))
	_ = cs.Set("frame.rails", json.RawMessage(`"boxed"`))
	_ = cs.Set("vin", json.RawMessage(`"2FT"`))

	entries := cs.Entries()
	if len(entries) != 2 || entries[0].Key != "frame.rails" || string(entries[1].Value) != `"2FT"` {
		t.Errorf("Entries() = %+v", entries)
	}
	if cs.BuildID() != 9 {
		t.Errorf("BuildID() = %d", cs.BuildID())
	}

	cs.Unset("vin")
	if len(cs.Entries()) != 1 {
		t.Errorf("Entries() after Unset = %+v", cs.Entries())
	}
	cs.Discard()
	if !cs.IsEmpty() {
		t.Error("IsEmpty() = false after Discard")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key, text, want string
	}{
		{key: "displacement_ci", text: "350", want: `350`},
		{key: "vehicle_make", text: "Ford", want: `"Ford"`},
		{key: "vehicle_make", text: `"Ford"`, want: `"Ford"`},
		{key: "vin", text: "true", want: `true`},
		{key: "suspension.front.springs", text: "123", want: `"123"`},
		{key: "suspension.front", text: `{"a":1}`, want: `{"a":1}`},
		{key: "suspension.front", text: `{broken`, want: `"{broken"`},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.text, func(t *testing.T) {
			if got := string(garage.ParseValue(tt.key, tt.text)); got != tt.want {
				t.Errorf("ParseValue() = %s, want %s", got, tt.want)
			}
		})
	}
}

func changesetBuild(t *testing.T, e *env) *model.BuildDetail {
	t.Helper()
	return e.backend.AddBuild(e.user.ID, "Truck", map[string]any{"vehicle_make": "Chevrolet"}, map[model.Section]string{
		model.SectionSuspension: `{"front":{"springs":"coil","shocks":"bilstein"}}`,
		model.SectionFrame:      `{"rails":"boxed"}`,
	})
}

func TestService_SaveChangeset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := changesetBuild(t, e)

	cs := garage.NewChangeset(b.ID)
	for key, value := range map[string]string{
		"vehicle_make":             `"Ford"`,
		"suspension.front.springs": `"leaf"`,
		"suspension.rear.springs":  `"leaf"`,
		"frame.crossmembers.count": `4`,
	} {
		if err := cs.Set(key, json.RawMessage(value)); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	flushed, err := e.svc.SaveChangeset(ctx, cs)
	if err != nil {
		t.Fatalf("SaveChangeset() error = %v", err)
	}
	want := []string{"vehicle_make", "suspension.front.springs", "suspension.rear.springs", "frame.crossmembers.count"}
	if !reflect.DeepEqual(flushed, want) {
		t.Errorf("flushed = %v, want %v", flushed, want)
	}
	if !cs.IsEmpty() {
		t.Errorf("changeset not empty: %+v", cs.Entries())
	}
	if n := e.backend.Calls("UpdateBuild"); n != 1 {
		t.Errorf("UpdateBuild calls = %d, want 1", n)
	}
	if n := e.backend.Calls("PutSection"); n != 2 {
		t.Errorf("PutSection calls = %d, want 2", n)
	}

	got, err := e.backend.GetBuild(ctx, ref(b.ID))
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if got.Specs["vehicle_make"] != "Ford" {
		t.Errorf("vehicle_make = %v", got.Specs["vehicle_make"])
	}
	susp, _ := got.Section(model.SectionSuspension)
	front, _ := susp["front"].(map[string]any)
	if front["springs"] != "leaf" || front["shocks"] != "bilstein" {
		t.Errorf("suspension.front = %v, want merged", front)
	}
	frame, _ := got.Section(model.SectionFrame)
	cross, _ := frame["crossmembers"].(map[string]any)
	if frame["rails"] != "boxed" || cross["count"] != float64(4) {
		t.Errorf("frame = %v", frame)
	}
}

func TestService_SaveChangeset_validatesBeforeSending(t *testing.T) {
	e := newEnv(t)
	b := changesetBuild(t, e)

	cs := garage.NewChangeset(b.ID)
	_ = cs.Set("vehicle_make", json.RawMessage(`"Ford"`))
	_ = cs.Set("frame.rails.width", json.RawMessage(`34`))

	flushed, err := e.svc.SaveChangeset(context.Background(), cs)
	if !errors.Is(err, garage.ErrValidation) {
		t.Fatalf("SaveChangeset() error = %v, want ErrValidation", err)
	}
	if len(flushed) != 0 {
		t.Errorf("flushed = %v, want none", flushed)
	}
	if n := e.backend.Calls("UpdateBuild") + e.backend.Calls("PutSection"); n != 0 {
		t.Errorf("write calls = %d, want 0", n)
	}
	if len(cs.Entries()) != 2 {
		t.Errorf("entries = %+v, want both kept", cs.Entries())
	}
}

func TestService_SaveChangeset_partialFailure(t *testing.T) {
	e := newEnv(t)
	b := changesetBuild(t, e)
	e.backend.Fail("PutSection", errors.New("disk full"))

	cs := garage.NewChangeset(b.ID)
	_ = cs.Set("vehicle_make", json.RawMessage(`"Ford"`))
	_ = cs.Set("frame.rails", json.RawMessage(`"c-channel"`))

	flushed, err := e.svc.SaveChangeset(context.Background(), cs)
	if err == nil {
		t.Fatal("SaveChangeset() expected error")
	}
	if !reflect.DeepEqual(flushed, []string{"vehicle_make"}) {
		t.Errorf("flushed = %v, want [vehicle_make]", flushed)
	}
	entries := cs.Entries()
	if len(entries) != 1 || entries[0].Key != "frame.rails" {
		t.Errorf("remaining = %+v, want frame.rails", entries)
	}

	// The scalar update already landed; the failed section PUT does not undo it.
	got, err := e.backend.GetBuild(context.Background(), ref(b.ID))
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if got.Specs["vehicle_make"] != "Ford" {
		t.Errorf("vehicle_make = %v, want Ford kept after the failed save", got.Specs["vehicle_make"])
	}
	frame, _ := got.Section(model.SectionFrame)
	if frame["rails"] != "boxed" {
		t.Errorf("frame.rails = %v, want unchanged", frame["rails"])
	}
}

func TestService_drafts(t *testing.T) {
	e := newEnv(t)
	b := changesetBuild(t, e)

	if err := e.svc.StageChange(b.ID, "horsepower", json.RawMessage(`1`)); !errors.Is(err, garage.ErrValidation) {
		t.Fatalf("StageChange(unknown) error = %v, want ErrValidation", err)
	}
	if err := e.svc.StageChange(b.ID, "vehicle_make", json.RawMessage(`"Ford"`)); err != nil {
		t.Fatalf("StageChange() error = %v", err)
	}
	if err := e.svc.StageChange(b.ID, "frame.rails", json.RawMessage(`"c-channel"`)); err != nil {
		t.Fatalf("StageChange() error = %v", err)
	}
	if err := e.svc.StageChange(b.ID, "vin", json.RawMessage(`"1FT"`)); err != nil {
		t.Fatalf("StageChange() error = %v", err)
	}
	if err := e.svc.UnstageChange(b.ID, "vin"); err != nil {
		t.Fatalf("UnstageChange() error = %v", err)
	}

	ids, err := e.svc.DraftBuilds()
	if err != nil {
		t.Fatalf("DraftBuilds() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{b.ID}) {
		t.Errorf("DraftBuilds() = %v", ids)
	}

	cs, err := e.svc.LoadDraft(b.ID)
	if err != nil {
		t.Fatalf("LoadDraft() error = %v", err)
	}
	if len(cs.Entries()) != 2 {
		t.Fatalf("draft entries = %+v, want 2", cs.Entries())
	}

	t.Run("partial save keeps the rest", func(t *testing.T) {
		e.backend.Fail("PutSection", errors.New("disk full"))
		flushed, err := e.svc.SaveDraft(context.Background(), b.ID)
		if err == nil {
			t.Fatal("SaveDraft() expected error")
		}
		if !reflect.DeepEqual(flushed, []string{"vehicle_make"}) {
			t.Errorf("flushed = %v", flushed)
		}
		left, _ := e.svc.LoadDraft(b.ID)
		if entries := left.Entries(); len(entries) != 1 || entries[0].Key != "frame.rails" {
			t.Errorf("draft after partial save = %+v", entries)
		}
	})

	t.Run("retry", func(t *testing.T) {
		e.backend.Fail("PutSection", nil)
		flushed, err := e.svc.SaveDraft(context.Background(), b.ID)
		if err != nil {
			t.Fatalf("SaveDraft() error = %v", err)
		}
		if !reflect.DeepEqual(flushed, []string{"frame.rails"}) {
			t.Errorf("flushed = %v", flushed)
		}
		ids, _ := e.svc.DraftBuilds()
		if len(ids) != 0 {
			t.Errorf("DraftBuilds() = %v, want none", ids)
		}
	})

	t.Run("empty draft sends nothing", func(t *testing.T) {
		e.backend.ResetCalls()
		flushed, err := e.svc.SaveDraft(context.Background(), b.ID)
		if err != nil || flushed != nil {
			t.Errorf("SaveDraft() = %v, %v", flushed, err)
		}
		if n := e.backend.Calls("UpdateBuild"); n != 0 {
			t.Errorf("UpdateBuild calls = %d", n)
		}
	})

	t.Run("discard", func(t *testing.T) {
		_ = e.svc.StageChange(b.ID, "vin", json.RawMessage(`"1FT"`))
		if err := e.svc.DiscardDraft(b.ID); err != nil {
			t.Fatalf("DiscardDraft() error = %v", err)
		}
		cs, _ := e.svc.LoadDraft(b.ID)
		if !cs.IsEmpty() {
			t.Errorf("draft after discard = %+v", cs.Entries())
		}
	})
}

func TestService_drafts_noDatabase(t *testing.T) {
	e := newEnv(t)
	svc := garage.NewService(e.backend, e.tokens, nil, nil, nil, nil, nil)

	if err := svc.StageChange(1, "vin", json.RawMessage(`"x"`)); !errors.Is(err, garage.ErrNoDatabase) {
		t.Errorf("StageChange() error = %v", err)
	}
	if _, err := svc.SaveDraft(context.Background(), 1); !errors.Is(err, garage.ErrNoDatabase) {
		t.Errorf("SaveDraft() error = %v", err)
	}
	if _, err := svc.DraftBuilds(); !errors.Is(err, garage.ErrNoDatabase) {
		t.Errorf("DraftBuilds() error = %v", err)
	}
}
