package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"garage-go/internal/garage"
)

func TestMemoryArchive_PutAndGet(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive("test-archive")

	tests := []struct {
		name    string
		key     string
		content string
	}{
		{name: "store and retrieve", key: "frame/ladder-1.json", content: `{"name":"ladder"}`},
		{name: "empty object", key: "brakes/empty-2.json", content: ""},
		{name: "large object", key: "transmission/big-3.json", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := archive.Put(ctx, tt.key, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			var buf bytes.Buffer
			if err := archive.Get(ctx, tt.key, &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("Get() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryArchive_Put_overwrites(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive("test")

	if err := archive.Put(ctx, "frame/a-1.json", strings.NewReader("one"), 3); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := archive.Put(ctx, "frame/a-1.json", strings.NewReader("second"), 6); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	var buf bytes.Buffer
	if err := archive.Get(ctx, "frame/a-1.json", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != "second" {
		t.Errorf("Get() = %q, want %q", buf.String(), "second")
	}
}

func TestMemoryArchive_Put_sizeMismatch(t *testing.T) {
	archive := NewMemoryArchive("test")
	err := archive.Put(context.Background(), "frame/a-1.json", strings.NewReader("abc"), 10)
	if err == nil {
		t.Fatal("Put() expected error for size mismatch")
	}
	if keys, _ := archive.List(context.Background(), ""); len(keys) != 0 {
		t.Errorf("List() = %v, want nothing stored", keys)
	}
}

func TestMemoryArchive_Put_invalidKey(t *testing.T) {
	archive := NewMemoryArchive("test")
	for _, key := range []string{"", "/abs.json", "frame/../x.json", "frame//x.json", "frame/"} {
		t.Run(key, func(t *testing.T) {
			if err := archive.Put(context.Background(), key, strings.NewReader("x"), 1); err == nil {
				t.Errorf("Put(%q) expected error", key)
			}
		})
	}
}

func TestMemoryArchive_Get_notFound(t *testing.T) {
	archive := NewMemoryArchive("test")
	err := archive.Get(context.Background(), "frame/missing-9.json", &bytes.Buffer{})
	if !errors.Is(err, garage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryArchive_List(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive("test")
	for _, key := range []string{"frame/b-2.json", "brakes/a-1.json", "frame/a-1.json"} {
		if err := archive.Put(ctx, key, strings.NewReader("{}"), 2); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	all, err := archive.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"brakes/a-1.json", "frame/a-1.json", "frame/b-2.json"}
	if strings.Join(all, ",") != strings.Join(want, ",") {
		t.Errorf("List() = %v, want %v", all, want)
	}

	frames, err := archive.List(ctx, "frame/")
	if err != nil {
		t.Fatalf("List(frame/) error = %v", err)
	}
	if len(frames) != 2 {
		t.Errorf("List(frame/) = %v, want 2 keys", frames)
	}
}
