package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"garage-go/internal/garage"
	"garage-go/internal/model"
	"garage-go/internal/testutil"
)

type fixture struct {
	server  *testutil.Server
	backend *testutil.FakeBackend
	client  *Client
	user    *model.User
}

// newFixture starts a fake backend with one logged-in user.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testutil.NewFakeBackend(testutil.FixedClock())
	server := testutil.NewServer(t, backend)
	user := backend.AddUser("dana@example.com", "hunter22", "Dana", "Reyes")
	token := backend.LoginAs(user.ID)

	client, err := New(server.URL, garage.StaticToken(token),
		WithIDGenerator(testutil.NewStubIDGenerator("req")),
		WithUserAgent("garage-test"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{server: server, backend: backend, client: client, user: user}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "http", baseURL: "http://localhost:8000"},
		{name: "trailing slash", baseURL: "https://garage.example.com/"},
		{name: "no scheme", baseURL: "localhost:8000", wantErr: true},
		{name: "ftp", baseURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.baseURL, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && strings.HasSuffix(c.BaseURL(), "/") {
				t.Errorf("BaseURL() = %q, want no trailing slash", c.BaseURL())
			}
		})
	}
}

func TestClient_headers(t *testing.T) {
	f := newFixture(t)

	if _, err := f.client.CurrentUser(context.Background()); err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}

	req := f.server.LastRequest()
	if !strings.HasPrefix(req.Authorization, "Bearer token-") {
		t.Errorf("Authorization = %q", req.Authorization)
	}
	if req.RequestID != "req-1" {
		t.Errorf("X-Request-ID = %q, want req-1", req.RequestID)
	}
	if req.UserAgent != "garage-test" {
		t.Errorf("User-Agent = %q, want garage-test", req.UserAgent)
	}
}

func TestClient_anonymous(t *testing.T) {
	f := newFixture(t)
	anon, err := New(f.server.URL, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = anon.ListBuilds(context.Background())
	if !errors.Is(err, garage.ErrUnauthorized) {
		t.Fatalf("ListBuilds() error = %v, want ErrUnauthorized", err)
	}
	if got := f.server.LastRequest().Authorization; got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
	if err.Error() != "Could not validate credentials" {
		t.Errorf("error = %q, want backend detail", err.Error())
	}
}

type failingTokens struct{}

func (failingTokens) Token(context.Context) (string, error) {
	return "", errors.New("identity unreadable")
}

func TestClient_tokenError(t *testing.T) {
	f := newFixture(t)
	c, err := New(f.server.URL, failingTokens{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.ListBuilds(context.Background()); err == nil || !strings.Contains(err.Error(), "identity unreadable") {
		t.Fatalf("ListBuilds() error = %v, want token error", err)
	}
	if n := len(f.server.Requests()); n != 0 {
		t.Errorf("requests = %d, want none sent", n)
	}
}

func TestAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("login", func(t *testing.T) {
		resp, err := f.client.Login(ctx, "dana@example.com", "hunter22")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if resp.AccessToken == "" || resp.User.Email != "dana@example.com" {
			t.Errorf("Login() = %+v", resp)
		}
	})

	t.Run("bad password", func(t *testing.T) {
		_, err := f.client.Login(ctx, "dana@example.com", "nope")
		if !errors.Is(err, garage.ErrUnauthorized) {
			t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
		}
		if err.Error() != "Incorrect email or password" {
			t.Errorf("error = %q", err.Error())
		}
	})

	t.Run("register duplicate", func(t *testing.T) {
		_, err := f.client.Register(ctx, model.RegisterRequest{Email: "dana@example.com", Password: "x"})
		if !errors.Is(err, garage.ErrValidation) {
			t.Fatalf("Register() error = %v, want ErrValidation", err)
		}
		if StatusCode(err) != http.StatusBadRequest {
			t.Errorf("StatusCode() = %d, want 400", StatusCode(err))
		}
	})

	t.Run("register", func(t *testing.T) {
		resp, err := f.client.Register(ctx, model.RegisterRequest{
			Email: "sam@example.com", Password: "pw", FirstName: "Sam", LastName: "Lee",
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if resp.User.FirstName != "Sam" {
			t.Errorf("User = %+v", resp.User)
		}
	})

	t.Run("google", func(t *testing.T) {
		resp, err := f.client.GoogleLogin(ctx, "google:new@example.com")
		if err != nil {
			t.Fatalf("GoogleLogin() error = %v", err)
		}
		if resp.User.OAuthProvider != "google" {
			t.Errorf("OAuthProvider = %q, want google", resp.User.OAuthProvider)
		}
	})

	t.Run("sms", func(t *testing.T) {
		const phone = "+14155552671"
		if err := f.client.SendSMSCode(ctx, "4155552671"); !errors.Is(err, garage.ErrValidation) {
			t.Fatalf("SendSMSCode(no plus) error = %v, want ErrValidation", err)
		}
		if err := f.client.SendSMSCode(ctx, phone); err != nil {
			t.Fatalf("SendSMSCode() error = %v", err)
		}
		resp, err := f.client.VerifySMSCode(ctx, model.SMSVerifyRequest{
			PhoneNumber: phone, VerificationCode: f.backend.SMSCode(phone), FirstName: "Ana",
		})
		if err != nil {
			t.Fatalf("VerifySMSCode() error = %v", err)
		}
		if resp.AccessToken == "" || resp.User.PhoneNumber != phone || !resp.User.PhoneVerified {
			t.Errorf("VerifySMSCode() = %+v", resp)
		}
	})
}

func TestBuilds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SetLimits(model.TierPremier, 10, testutil.DefaultStorageLimit)

	created, err := f.client.CreateBuild(ctx, map[string]any{"name": "Shop Truck", "vehicle_make": "Ford"})
	if err != nil {
		t.Fatalf("CreateBuild() error = %v", err)
	}
	if created.Name != "Shop Truck" || created.Specs["vehicle_make"] != "Ford" {
		t.Errorf("CreateBuild() = %+v", created)
	}

	builds, err := f.client.ListBuilds(ctx)
	if err != nil {
		t.Fatalf("ListBuilds() error = %v", err)
	}
	if len(builds) != 1 || builds[0].ID != created.ID {
		t.Errorf("ListBuilds() = %+v", builds)
	}

	updated, err := f.client.UpdateBuild(ctx, created.ID, map[string]any{"vehicle_make": "Chevrolet"})
	if err != nil {
		t.Fatalf("UpdateBuild() error = %v", err)
	}
	if updated.Specs["vehicle_make"] != "Chevrolet" {
		t.Errorf("vehicle_make = %v, want Chevrolet", updated.Specs["vehicle_make"])
	}
	if req := f.server.LastRequest(); req.Method != http.MethodPatch {
		t.Errorf("UpdateBuild method = %s, want PATCH", req.Method)
	}

	doc := json.RawMessage(`{"front":{"springs":"coil"}}`)
	if err := f.client.PutSection(ctx, created.ID, model.SectionSuspension, doc); err != nil {
		t.Fatalf("PutSection() error = %v", err)
	}

	detail, err := f.client.GetBuild(ctx, created.Slug)
	if err != nil {
		t.Fatalf("GetBuild(slug) error = %v", err)
	}
	sec, err := detail.Section(model.SectionSuspension)
	if err != nil {
		t.Fatalf("Section() error = %v", err)
	}
	front, _ := sec["front"].(map[string]any)
	if front["springs"] != "coil" {
		t.Errorf("suspension = %v", sec)
	}

	_, err = f.client.GetBuild(ctx, "999")
	if !errors.Is(err, garage.ErrNotFound) {
		t.Errorf("GetBuild(999) error = %v, want ErrNotFound", err)
	}
}

func TestCreateBuild_limit(t *testing.T) {
	f := newFixture(t)
	f.backend.AddBuild(f.user.ID, "First", nil, nil)

	_, err := f.client.CreateBuild(context.Background(), map[string]any{"name": "Second"})
	if !errors.Is(err, garage.ErrForbidden) {
		t.Fatalf("CreateBuild() error = %v, want ErrForbidden", err)
	}
	if !strings.Contains(err.Error(), "Build limit reached") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestUploadComponentPhoto(t *testing.T) {
	f := newFixture(t)
	b := f.backend.AddBuild(f.user.ID, "Truck", nil, nil)

	up, err := f.client.UploadComponentPhoto(context.Background(), b.ID, "brakes", "pads.jpg", bytes.NewReader([]byte("jpegdata")))
	if err != nil {
		t.Fatalf("UploadComponentPhoto() error = %v", err)
	}
	if up.FileSize != 8 || !strings.HasSuffix(up.FilePath, "/brakes/pads.jpg") {
		t.Errorf("Upload = %+v", up)
	}
	if got := f.backend.Uploads(); len(got) != 1 {
		t.Errorf("backend uploads = %d, want 1", len(got))
	}
}

func TestSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.backend.AddBuild(f.user.ID, "Truck", nil, map[model.Section]string{
		model.SectionFrame: `{"rails":"boxed"}`,
	})
	first := f.backend.AddSnapshot(b.ID, model.SnapshotManual, "baseline")

	if err := f.client.PutSection(ctx, b.ID, model.SectionFrame, json.RawMessage(`{"rails":"c-channel"}`)); err != nil {
		t.Fatalf("PutSection() error = %v", err)
	}

	snaps, err := f.client.ListSnapshots(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("ListSnapshots() len = %d, want 3", len(snaps))
	}
	latest := snaps[0]

	got, err := f.client.GetSnapshot(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if got.ChangeDescription != "baseline" {
		t.Errorf("ChangeDescription = %q", got.ChangeDescription)
	}

	diff, err := f.client.DiffSnapshots(ctx, first.ID, latest.ID)
	if err != nil {
		t.Fatalf("DiffSnapshots() error = %v", err)
	}
	if diff.SnapshotBefore.ID != first.ID || diff.SnapshotAfter.ID != latest.ID {
		t.Errorf("diff refs = %d -> %d, want %d -> %d", diff.SnapshotBefore.ID, diff.SnapshotAfter.ID, first.ID, latest.ID)
	}
	if !diff.Changes[model.SectionFrame.Field()].HasChanges {
		t.Error("frame change not reported")
	}
	wantPath := "/api/snapshots/" + id(latest.ID) + "/diff/" + id(first.ID)
	if p := f.server.LastRequest().Path; p != wantPath {
		t.Errorf("diff path = %q, want %q", p, wantPath)
	}

	res, err := f.client.RestoreSnapshot(ctx, b.ID, first.ID)
	if err != nil {
		t.Fatalf("RestoreSnapshot() error = %v", err)
	}
	if !res.Success {
		t.Errorf("RestoreSnapshot() = %+v", res)
	}
}

func TestMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.backend.AddBuild(f.user.ID, "Truck", nil, nil)

	cost := 42.5
	created, err := f.client.CreateMaintenance(ctx, b.ID, model.MaintenanceInput{
		MaintenanceType: "Oil Change",
		EventDate:       "2024-01-15T10:30:00",
		Cost:            &cost,
	})
	if err != nil {
		t.Fatalf("CreateMaintenance() error = %v", err)
	}
	if created.SnapshotBefore == 0 || created.SnapshotAfter == 0 {
		t.Errorf("CreateMaintenance() = %+v", created)
	}

	att, err := f.client.UploadAttachment(ctx, created.ID, "receipt.pdf", "parts receipt", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("UploadAttachment() error = %v", err)
	}
	if att.Description != "parts receipt" {
		t.Errorf("Description = %q", att.Description)
	}

	list, err := f.client.ListAttachments(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != att.ID {
		t.Errorf("ListAttachments() = %+v", list)
	}

	_, err = f.client.CreateMaintenance(ctx, b.ID, model.MaintenanceInput{})
	if !errors.Is(err, garage.ErrValidation) {
		t.Errorf("CreateMaintenance(empty) error = %v, want ErrValidation", err)
	}
}

func TestTodos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.backend.AddBuild(f.user.ID, "Truck", nil, nil)

	created, err := f.client.CreateTodo(ctx, b.ID, model.TodoInput{
		Title: "Rotate tires", Category: "Tire Rotation", Priority: model.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	other := f.backend.AddTodo(b.ID, model.Todo{Title: "Bleed brakes", Category: "Maintenance"})

	list, err := f.client.ListTodos(ctx, b.ID, model.TodoFilter{Category: "Tire Rotation"})
	if err != nil {
		t.Fatalf("ListTodos() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("ListTodos(category) = %+v", list)
	}
	if q := f.server.LastRequest().Query; q != "category=Tire+Rotation" {
		t.Errorf("query = %q", q)
	}

	status := model.TodoInProgress
	if err := f.client.UpdateTodo(ctx, created.ID, model.TodoPatch{Status: &status}); err != nil {
		t.Fatalf("UpdateTodo() error = %v", err)
	}
	got, err := f.client.GetTodo(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTodo() error = %v", err)
	}
	if got.Status != model.TodoInProgress {
		t.Errorf("Status = %q, want in_progress", got.Status)
	}

	done, err := f.client.CompleteTodo(ctx, created.ID, model.TodoCompletion{
		CompletionNotes: "done", CreateMaintenanceRecord: true,
	})
	if err != nil {
		t.Fatalf("CompleteTodo() error = %v", err)
	}
	if done.MaintenanceRecordID == nil {
		t.Error("MaintenanceRecordID = nil, want linked record")
	}

	if err := f.client.ReopenTodo(ctx, created.ID); err != nil {
		t.Fatalf("ReopenTodo() error = %v", err)
	}
	if st := f.backend.Todo(created.ID).Status; st != model.TodoPending {
		t.Errorf("Status after reopen = %q, want pending", st)
	}

	if err := f.client.ReorderTodos(ctx, b.ID, []int64{other.ID, created.ID}); err != nil {
		t.Fatalf("ReorderTodos() error = %v", err)
	}
	if f.backend.Todo(other.ID).SortOrder != 0 || f.backend.Todo(created.ID).SortOrder != 1 {
		t.Error("ReorderTodos() did not apply the order")
	}

	stats, err := f.client.TodoStats(ctx, b.ID)
	if err != nil {
		t.Fatalf("TodoStats() error = %v", err)
	}
	if stats.StatusCounts["pending"] != 2 {
		t.Errorf("StatusCounts = %v", stats.StatusCounts)
	}

	if err := f.client.DeleteTodo(ctx, other.ID); err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}
	if _, err := f.client.GetTodo(ctx, other.ID); !errors.Is(err, garage.ErrNotFound) {
		t.Errorf("GetTodo(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.backend.AddBuild(f.user.ID, "Truck", nil, nil)

	n, err := f.client.AddNote(ctx, b.ID, model.ComponentBrakes, "new pads")
	if err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if n.UserID != f.user.ID || n.Content != "new pads" {
		t.Errorf("AddNote() = %+v", n)
	}

	edited, err := f.client.UpdateNote(ctx, b.ID, model.ComponentBrakes, n.ID, "new pads and rotors")
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if edited.Content != "new pads and rotors" {
		t.Errorf("Content = %q", edited.Content)
	}

	notes, err := f.client.ListNotes(ctx, b.ID, model.ComponentBrakes)
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("ListNotes() len = %d, want 1", len(notes))
	}

	if err := f.client.DeleteNote(ctx, b.ID, model.ComponentBrakes, n.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	notes, _ = f.client.ListNotes(ctx, b.ID, model.ComponentBrakes)
	if len(notes) != 0 {
		t.Errorf("ListNotes() after delete len = %d, want 0", len(notes))
	}
}

func TestSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.client.SubscriptionStatus(ctx)
	if err != nil {
		t.Fatalf("SubscriptionStatus() error = %v", err)
	}
	if st.Tier != model.TierDefault || st.BuildsLimit != testutil.DefaultBuildLimit {
		t.Errorf("SubscriptionStatus() = %+v", st)
	}

	checkout, err := f.client.CreateCheckoutSession(ctx)
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if checkout != f.backend.CheckoutURL {
		t.Errorf("checkout url = %q", checkout)
	}

	if _, err := f.client.CreatePortalSession(ctx); !errors.Is(err, garage.ErrValidation) {
		t.Errorf("CreatePortalSession(default tier) error = %v, want ErrValidation", err)
	}

	f.backend.SetLimits(model.TierPremier, 10, testutil.DefaultStorageLimit)
	portal, err := f.client.CreatePortalSession(ctx)
	if err != nil {
		t.Fatalf("CreatePortalSession() error = %v", err)
	}
	if portal != f.backend.PortalURL {
		t.Errorf("portal url = %q", portal)
	}
}

func TestComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.client.CreateComponent(ctx, model.ComponentBrakes, model.ComponentInput{
		Name: "Big brake kit", IsTemplate: true, ComponentData: json.RawMessage(`{"rotors":"13in"}`),
	})
	if err != nil {
		t.Fatalf("CreateComponent() error = %v", err)
	}

	got, err := f.client.GetComponent(ctx, model.ComponentBrakes, c.ID)
	if err != nil {
		t.Fatalf("GetComponent() error = %v", err)
	}
	if got.Name != "Big brake kit" {
		t.Errorf("Name = %q", got.Name)
	}

	templates, err := f.client.ListTemplates(ctx, model.ComponentBrakes)
	if err != nil {
		t.Fatalf("ListTemplates() error = %v", err)
	}
	if len(templates) != 1 {
		t.Errorf("ListTemplates() len = %d, want 1", len(templates))
	}

	clone, err := f.client.CloneComponent(ctx, model.ComponentBrakes, c.ID, "Kit copy")
	if err != nil {
		t.Fatalf("CloneComponent() error = %v", err)
	}
	if clone.ID == c.ID || clone.Name != "Kit copy" {
		t.Errorf("CloneComponent() = %+v", clone)
	}

	in := model.ComponentInput{Name: "Big brake kit v2", ComponentData: json.RawMessage(`{"rotors":"14in"}`)}
	updated, err := f.client.UpdateComponent(ctx, model.ComponentBrakes, c.ID, in)
	if err != nil {
		t.Fatalf("UpdateComponent() error = %v", err)
	}
	if updated.Name != "Big brake kit v2" {
		t.Errorf("Name = %q", updated.Name)
	}

	if err := f.client.DeleteComponent(ctx, model.ComponentBrakes, c.ID); err != nil {
		t.Fatalf("DeleteComponent() error = %v", err)
	}
	if _, err := f.client.GetComponent(ctx, model.ComponentBrakes, c.ID); !errors.Is(err, garage.ErrNotFound) {
		t.Errorf("GetComponent(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestInjectedFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail("ListBuilds", testutil.Reject(http.StatusForbidden, "Account suspended"))

	_, err := f.client.ListBuilds(context.Background())
	if !errors.Is(err, garage.ErrForbidden) {
		t.Fatalf("ListBuilds() error = %v, want ErrForbidden", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Account suspended" || apiErr.Path != "/api/builds" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_nonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = c.ListBuilds(context.Background())
	if StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("StatusCode() = %d, want 502 (err = %v)", StatusCode(err), err)
	}
	if err.Error() != "upstream unavailable" {
		t.Errorf("error = %q", err.Error())
	}
}
