package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"garage-go/internal/garage"
	"garage-go/internal/model"
)

// Rejection is a refusal with an explicit HTTP status and detail, the way the
// backend reports limit and permission errors.
type Rejection struct {
	Status int
	Detail string
}

// Reject creates a Rejection.
func Reject(status int, detail string) error {
	return &Rejection{Status: status, Detail: detail}
}

func (r *Rejection) Error() string { return r.Detail }

func (r *Rejection) Is(target error) bool {
	switch r.Status {
	case http.StatusUnauthorized:
		return target == garage.ErrUnauthorized
	case http.StatusForbidden:
		return target == garage.ErrForbidden
	case http.StatusNotFound:
		return target == garage.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return target == garage.ErrValidation
	}
	return false
}

// Defaults matching the backend's default tier.
const (
	DefaultBuildLimit   = 1
	DefaultStorageLimit = 100 * 1024 * 1024
)

type noteKey struct {
	buildID   int64
	component model.ComponentType
}

// FakeBackend is an in-memory garage.Backend with the server-side semantics
// the client relies on: ownership checks, snapshots around maintenance and
// restores, todo completion with linked maintenance records and usage
// limits. Every call is counted, and any method can be made to fail. It is
// safe for concurrent use so it can sit behind an HTTP server.
type FakeBackend struct {
	mu    sync.Mutex
	clock garage.Clock

	nextID  int64
	current int64

	users     map[int64]*model.User
	passwords map[string]string
	tokens    map[string]int64
	smsCodes  map[string]string

	builds      map[int64]*model.BuildDetail
	snapshots   map[int64]*model.Snapshot
	maintenance map[int64]*model.MaintenanceRecord
	attachments map[int64][]model.Attachment
	todos       map[int64]*model.Todo
	notes       map[noteKey][]model.ComponentNote
	components  map[model.ComponentType]map[int64]*model.Component
	uploads     []model.Upload

	tier         string
	buildLimit   int
	storageLimit int64
	storageUsed  int64

	calls    map[string]int
	failures map[string]error

	CheckoutURL string
	PortalURL   string
}

func NewFakeBackend(clock garage.Clock) *FakeBackend {
	if clock == nil {
		clock = FixedClock()
	}
	return &FakeBackend{
		clock:        clock,
		users:        make(map[int64]*model.User),
		passwords:    make(map[string]string),
		tokens:       make(map[string]int64),
		smsCodes:     make(map[string]string),
		builds:       make(map[int64]*model.BuildDetail),
		snapshots:    make(map[int64]*model.Snapshot),
		maintenance:  make(map[int64]*model.MaintenanceRecord),
		attachments:  make(map[int64][]model.Attachment),
		todos:        make(map[int64]*model.Todo),
		notes:        make(map[noteKey][]model.ComponentNote),
		components:   make(map[model.ComponentType]map[int64]*model.Component),
		tier:         model.TierDefault,
		buildLimit:   DefaultBuildLimit,
		storageLimit: DefaultStorageLimit,
		calls:        make(map[string]int),
		failures:     make(map[string]error),
		CheckoutURL:  "https://checkout.example.test/session",
		PortalURL:    "https://billing.example.test/portal",
	}
}

// --- test controls ---

// Calls returns how many times method was called.
func (b *FakeBackend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// ResetCalls zeroes every call counter.
func (b *FakeBackend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = make(map[string]int)
}

// Fail makes every later call of method return err. A nil err clears it.
func (b *FakeBackend) Fail(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, method)
		return
	}
	b.failures[method] = err
}

// SetLimits changes the tier and its limits.
func (b *FakeBackend) SetLimits(tier string, builds int, storageBytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tier = tier
	b.buildLimit = builds
	b.storageLimit = storageBytes
}

// AddUser registers an account and returns it.
func (b *FakeBackend) AddUser(email, password, first, last string) *model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUser(email, password, first, last)
}

func (b *FakeBackend) addUser(email, password, first, last string) *model.User {
	u := &model.User{
		ID:        b.id(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		CreatedAt: model.NewTimestamp(b.clock.Now()),
	}
	b.users[u.ID] = u
	b.passwords[email] = password
	return u
}

// SMSCode returns the code last texted to phoneNumber, or "" if none is
// outstanding.
func (b *FakeBackend) SMSCode(phoneNumber string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.smsCodes[phoneNumber]
}

// LoginAs acts as userID for later calls and returns its token.
func (b *FakeBackend) LoginAs(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = userID
	return b.issueToken(userID)
}

// Logout drops the acting user.
func (b *FakeBackend) Logout() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = 0
}

// Authenticate maps a bearer token to its user and acts as that user. An
// empty or unknown token acts anonymously and reports false.
func (b *FakeBackend) Authenticate(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.tokens[token]
	if !ok {
		b.current = 0
		return false
	}
	b.current = id
	return true
}

// AddBuild stores a build owned by userID. sections holds raw JSON documents.
func (b *FakeBackend) AddBuild(userID int64, name string, specs map[string]any, sections map[model.Section]string) *model.BuildDetail {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.newBuild(userID, name)
	for k, v := range specs {
		d.Specs[k] = v
	}
	for sec, doc := range sections {
		d.Sections[sec] = json.RawMessage(doc)
	}
	return b.copyBuild(d)
}

// AddParts attaches catalogue parts to a build.
func (b *FakeBackend) AddParts(buildID int64, engine, vehicle []model.Part) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.builds[buildID]
	d.EngineParts = append(d.EngineParts, engine...)
	d.VehicleParts = append(d.VehicleParts, vehicle...)
}

// AddSnapshot captures the build's current sections as a snapshot.
func (b *FakeBackend) AddSnapshot(buildID int64, snapshotType, description string) *model.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.capture(b.builds[buildID], snapshotType, description, nil)
	cp := *s
	return &cp
}

// AddTodo stores t on buildID as is, assigning an id when t has none.
func (b *FakeBackend) AddTodo(buildID int64, t model.Todo) *model.Todo {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.ID == 0 {
		t.ID = b.id()
	}
	t.BuildID = buildID
	if t.Status == "" {
		t.Status = model.TodoPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	b.todos[t.ID] = &t
	cp := t
	return &cp
}

// Todo returns the stored todo, for assertions.
func (b *FakeBackend) Todo(id int64) *model.Todo {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.todos[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// AddComponentNote stores a note written by author.
func (b *FakeBackend) AddComponentNote(buildID int64, component model.ComponentType, author *model.User, content string) model.ComponentNote {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := model.ComponentNote{
		ID:        "note-" + strconv.FormatInt(b.id(), 10),
		UserID:    author.ID,
		UserName:  author.DisplayName(),
		Content:   content,
		Timestamp: model.NewTimestamp(b.clock.Now()),
	}
	k := noteKey{buildID, component}
	b.notes[k] = append(b.notes[k], n)
	return n
}

// MaintenanceRecords returns the build's maintenance log, for assertions.
func (b *FakeBackend) MaintenanceRecords(buildID int64) []model.MaintenanceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.MaintenanceRecord(nil), b.builds[buildID].Maintenance...)
}

// Uploads returns every component photo received.
func (b *FakeBackend) Uploads() []model.Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Upload(nil), b.uploads...)
}

// --- internals ---

func (b *FakeBackend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *FakeBackend) issueToken(userID int64) string {
	tok := fmt.Sprintf("token-%d-%d", userID, b.id())
	b.tokens[tok] = userID
	return tok
}

// enter counts the call and returns the injected failure for method, if any.
// The caller holds mu.
func (b *FakeBackend) enter(method string) error {
	b.calls[method]++
	return b.failures[method]
}

func (b *FakeBackend) user() (*model.User, error) {
	u, ok := b.users[b.current]
	if !ok {
		return nil, Reject(http.StatusUnauthorized, "Could not validate credentials")
	}
	return u, nil
}

func (b *FakeBackend) newBuild(userID int64, name string) *model.BuildDetail {
	id := b.id()
	d := &model.BuildDetail{Build: model.Build{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Slug:     fmt.Sprintf("%s-%d", strings.ReplaceAll(strings.ToLower(name), " ", "-"), id),
		Specs:    map[string]any{},
		Sections: map[model.Section]json.RawMessage{},
	}}
	if u, ok := b.users[userID]; ok {
		d.FirstName, d.LastName, d.Email = u.FirstName, u.LastName, u.Email
	}
	b.builds[id] = d
	return d
}

// ownedBuild returns the build if the acting user owns it.
func (b *FakeBackend) ownedBuild(buildID int64) (*model.BuildDetail, error) {
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	d, ok := b.builds[buildID]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Build not found")
	}
	if d.UserID != u.ID {
		return nil, Reject(http.StatusForbidden, "Access denied")
	}
	return d, nil
}

// copyBuild returns a deep copy through the wire encoding.
func (b *FakeBackend) copyBuild(d *model.BuildDetail) *model.BuildDetail {
	data, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	var out model.BuildDetail
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (b *FakeBackend) capture(d *model.BuildDetail, snapshotType, description string, maintenanceID *int64) *model.Snapshot {
	s := &model.Snapshot{
		ID:                b.id(),
		BuildID:           d.ID,
		UserID:            b.current,
		MaintenanceID:     maintenanceID,
		SnapshotType:      snapshotType,
		ChangeDescription: description,
		CreatedAt:         model.NewTimestamp(b.clock.Now()),
		Documents:         map[string]json.RawMessage{},
	}
	if u, ok := b.users[b.current]; ok {
		s.FirstName, s.LastName = u.FirstName, u.LastName
	}
	if maintenanceID != nil {
		if m, ok := b.maintenance[*maintenanceID]; ok {
			s.MaintenanceType = m.MaintenanceType
		}
	}
	for sec, doc := range d.Sections {
		s.Documents[sec.Field()] = append(json.RawMessage(nil), doc...)
	}
	b.snapshots[s.ID] = s
	return s
}

func floatAmount(f *float64) model.Amount {
	if f == nil {
		return ""
	}
	return model.Amount(strconv.FormatFloat(*f, 'f', -1, 64))
}

func jsonEqual(a, c json.RawMessage) bool {
	var x, y bytes.Buffer
	if len(a) == 0 {
		a = json.RawMessage("null")
	}
	if len(c) == 0 {
		c = json.RawMessage("null")
	}
	if json.Compact(&x, a) != nil || json.Compact(&y, c) != nil {
		return bytes.Equal(a, c)
	}
	return bytes.Equal(x.Bytes(), y.Bytes())
}

// --- AuthAPI ---

func (b *FakeBackend) Login(_ context.Context, email, password string) (*model.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("Login"); err != nil {
		return nil, err
	}
	pw, ok := b.passwords[email]
	if !ok || pw != password {
		return nil, Reject(http.StatusUnauthorized, "Incorrect email or password")
	}
	return b.session(email), nil
}

func (b *FakeBackend) session(email string) *model.TokenResponse {
	for _, u := range b.users {
		if u.Email == email {
			b.current = u.ID
			return &model.TokenResponse{AccessToken: b.issueToken(u.ID), TokenType: "bearer", User: *u}
		}
	}
	return nil
}

func (b *FakeBackend) Register(_ context.Context, req model.RegisterRequest) (*model.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("Register"); err != nil {
		return nil, err
	}
	if _, ok := b.passwords[req.Email]; ok {
		return nil, Reject(http.StatusBadRequest, "Email already registered")
	}
	b.addUser(req.Email, req.Password, req.FirstName, req.LastName)
	return b.session(req.Email), nil
}

func (b *FakeBackend) GoogleLogin(_ context.Context, credential string) (*model.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GoogleLogin"); err != nil {
		return nil, err
	}
	// Test credentials are "google:<email>".
	email, ok := strings.CutPrefix(credential, "google:")
	if !ok || email == "" {
		return nil, Reject(http.StatusUnauthorized, "Invalid Google token")
	}
	if _, exists := b.passwords[email]; !exists {
		u := b.addUser(email, "", "", "")
		u.OAuthProvider = "google"
	}
	return b.session(email), nil
}

func (b *FakeBackend) SendSMSCode(_ context.Context, phoneNumber string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("SendSMSCode"); err != nil {
		return err
	}
	if !strings.HasPrefix(phoneNumber, "+") {
		return Reject(http.StatusBadRequest, "Phone number must be in E.164 format (e.g., +14155552671)")
	}
	b.smsCodes[phoneNumber] = fmt.Sprintf("%06d", 100000+b.id())
	return nil
}

func (b *FakeBackend) VerifySMSCode(_ context.Context, req model.SMSVerifyRequest) (*model.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("VerifySMSCode"); err != nil {
		return nil, err
	}
	code, ok := b.smsCodes[req.PhoneNumber]
	if !ok || code != req.VerificationCode {
		return nil, Reject(http.StatusBadRequest, "Invalid or expired verification code")
	}
	delete(b.smsCodes, req.PhoneNumber)

	var user *model.User
	for _, u := range b.users {
		if u.PhoneNumber == req.PhoneNumber {
			user = u
			break
		}
	}
	if user == nil {
		email := strings.TrimPrefix(req.PhoneNumber, "+") + "@sms.placeholder"
		user = b.addUser(email, "", req.FirstName, req.LastName)
		user.PhoneNumber = req.PhoneNumber
	}
	user.PhoneVerified = true
	return b.session(user.Email), nil
}

func (b *FakeBackend) CurrentUser(context.Context) (*model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CurrentUser"); err != nil {
		return nil, err
	}
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

// --- BuildAPI ---

func (b *FakeBackend) ListBuilds(context.Context) ([]model.Build, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListBuilds"); err != nil {
		return nil, err
	}
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	out := []model.Build{}
	for _, d := range b.builds {
		if d.UserID == u.ID {
			out = append(out, b.copyBuild(d).Build)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (b *FakeBackend) GetBuild(_ context.Context, ref string) (*model.BuildDetail, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetBuild"); err != nil {
		return nil, err
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if d, ok := b.builds[id]; ok {
			return b.copyBuild(d), nil
		}
	}
	for _, d := range b.builds {
		if d.Slug == ref {
			return b.copyBuild(d), nil
		}
	}
	return nil, Reject(http.StatusNotFound, "Build not found")
}

func (b *FakeBackend) CreateBuild(_ context.Context, fields map[string]any) (*model.Build, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateBuild"); err != nil {
		return nil, err
	}
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	owned := 0
	for _, d := range b.builds {
		if d.UserID == u.ID {
			owned++
		}
	}
	if owned >= b.buildLimit {
		return nil, Reject(http.StatusForbidden, "Build limit reached. Upgrade to Premier to create more builds.")
	}
	name, _ := fields["name"].(string)
	if name == "" {
		return nil, Reject(http.StatusUnprocessableEntity, "name is required")
	}
	d := b.newBuild(u.ID, name)
	for k, v := range fields {
		if k != "name" && v != nil {
			d.Specs[k] = v
		}
	}
	d.CreatedAt = b.clock.Now().UTC().Format("2006-01-02T15:04:05")
	return &b.copyBuild(d).Build, nil
}

func (b *FakeBackend) UpdateBuild(_ context.Context, buildID int64, fields map[string]any) (*model.Build, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UpdateBuild"); err != nil {
		return nil, err
	}
	d, err := b.ownedBuild(buildID)
	if err != nil {
		return nil, err
	}
	for k := range fields {
		if !model.IsBuildField(k) {
			return nil, Reject(http.StatusBadRequest, "Unknown field: "+k)
		}
	}
	for k, v := range fields {
		switch {
		case k == "name":
			if s, ok := v.(string); ok {
				d.Name = s
			}
		case v == nil:
			delete(d.Specs, k)
		default:
			d.Specs[k] = v
		}
	}
	return &b.copyBuild(d).Build, nil
}

func (b *FakeBackend) PutSection(_ context.Context, buildID int64, section model.Section, doc json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("PutSection"); err != nil {
		return err
	}
	d, err := b.ownedBuild(buildID)
	if err != nil {
		return err
	}
	if !section.Editable() {
		return Reject(http.StatusNotFound, "Not Found")
	}
	if !json.Valid(doc) {
		return Reject(http.StatusUnprocessableEntity, "invalid document")
	}
	label := strings.ReplaceAll(string(section), "-", " ")
	b.capture(d, model.SnapshotBeforeChange, "Before "+label+" update", nil)
	d.Sections[section] = append(json.RawMessage(nil), doc...)
	b.capture(d, model.SnapshotManualEdit, "Updated "+label, nil)
	return nil
}

func (b *FakeBackend) UploadComponentPhoto(_ context.Context, buildID int64, componentType, filename string, r io.Reader) (*model.Upload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UploadComponentPhoto"); err != nil {
		return nil, err
	}
	if _, err := b.ownedBuild(buildID); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := b.charge(int64(len(data))); err != nil {
		return nil, err
	}
	up := model.Upload{
		FilePath: fmt.Sprintf("uploads/%d/%s/%s", buildID, componentType, filename),
		FileSize: int64(len(data)),
	}
	b.uploads = append(b.uploads, up)
	return &up, nil
}

func (b *FakeBackend) charge(size int64) error {
	if b.storageUsed+size > b.storageLimit {
		return Reject(http.StatusBadRequest, "Storage limit exceeded. Upgrade to Premier for more storage.")
	}
	b.storageUsed += size
	return nil
}

// --- SnapshotAPI ---

func (b *FakeBackend) ListSnapshots(_ context.Context, buildID int64) ([]model.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListSnapshots"); err != nil {
		return nil, err
	}
	if _, ok := b.builds[buildID]; !ok {
		return nil, Reject(http.StatusNotFound, "Build not found")
	}
	out := []model.Snapshot{}
	for _, s := range b.snapshots {
		if s.BuildID == buildID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].CreatedAt.After(out[j].CreatedAt.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (b *FakeBackend) GetSnapshot(_ context.Context, snapshotID int64) (*model.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetSnapshot"); err != nil {
		return nil, err
	}
	s, ok := b.snapshots[snapshotID]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Snapshot not found")
	}
	cp := *s
	return &cp, nil
}

func (b *FakeBackend) DiffSnapshots(_ context.Context, beforeID, afterID int64) (*model.SnapshotDiff, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("DiffSnapshots"); err != nil {
		return nil, err
	}
	before, ok1 := b.snapshots[beforeID]
	after, ok2 := b.snapshots[afterID]
	if !ok1 || !ok2 {
		return nil, Reject(http.StatusNotFound, "One or both snapshots not found")
	}
	diff := &model.SnapshotDiff{
		SnapshotBefore: ref(before),
		SnapshotAfter:  ref(after),
		Changes:        map[string]model.FieldChange{},
	}
	for _, sec := range model.AllSections {
		f := sec.Field()
		bv, av := before.Documents[f], after.Documents[f]
		if bv == nil {
			bv = json.RawMessage("null")
		}
		if av == nil {
			av = json.RawMessage("null")
		}
		diff.Changes[f] = model.FieldChange{Before: bv, After: av, HasChanges: !jsonEqual(bv, av)}
	}
	return diff, nil
}

func ref(s *model.Snapshot) model.SnapshotRef {
	return model.SnapshotRef{ID: s.ID, CreatedAt: s.CreatedAt, SnapshotType: s.SnapshotType, ChangeDescription: s.ChangeDescription}
}

func (b *FakeBackend) RestoreSnapshot(_ context.Context, buildID, snapshotID int64) (*model.RestoreResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("RestoreSnapshot"); err != nil {
		return nil, err
	}
	d, err := b.ownedBuild(buildID)
	if err != nil {
		return nil, err
	}
	s, ok := b.snapshots[snapshotID]
	if !ok || s.BuildID != buildID {
		return nil, Reject(http.StatusNotFound, fmt.Sprintf("Snapshot %d not found for build %d", snapshotID, buildID))
	}
	b.capture(d, model.SnapshotBeforeRestore, fmt.Sprintf("Before restoring to snapshot %d", snapshotID), nil)
	d.Sections = map[model.Section]json.RawMessage{}
	for _, sec := range model.AllSections {
		if doc, ok := s.Documents[sec.Field()]; ok {
			d.Sections[sec] = append(json.RawMessage(nil), doc...)
		}
	}
	b.capture(d, model.SnapshotRestored, "Restored to snapshot from "+s.CreatedAt.Format("2006-01-02 15:04"), nil)
	return &model.RestoreResult{Success: true, Message: "Build restored successfully"}, nil
}

// --- MaintenanceAPI ---

func (b *FakeBackend) CreateMaintenance(_ context.Context, buildID int64, in model.MaintenanceInput) (*model.MaintenanceCreated, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateMaintenance"); err != nil {
		return nil, err
	}
	d, err := b.ownedBuild(buildID)
	if err != nil {
		return nil, err
	}
	if in.MaintenanceType == "" || in.EventDate == "" {
		return nil, Reject(http.StatusUnprocessableEntity, "maintenance_type and event_date are required")
	}
	before := b.capture(d, model.SnapshotBeforeMaintenance, "Before "+in.MaintenanceType, nil)
	rec := b.addMaintenance(d, model.MaintenanceRecord{
		MaintenanceType: in.MaintenanceType,
		Timestamp:       in.EventDate,
		Notes:           in.Notes,
		OdometerMiles:   floatAmount(in.OdometerMiles),
		EngineHours:     floatAmount(in.EngineHours),
		Cost:            floatAmount(in.Cost),
		Brand:           in.Brand,
		PartNumber:      in.PartNumber,
		Quantity:        floatAmount(in.Quantity),
	})
	after := b.capture(d, model.SnapshotMaintenance, in.MaintenanceType+" completed", &rec.ID)
	return &model.MaintenanceCreated{ID: rec.ID, SnapshotBefore: before.ID, SnapshotAfter: after.ID}, nil
}

func (b *FakeBackend) addMaintenance(d *model.BuildDetail, rec model.MaintenanceRecord) *model.MaintenanceRecord {
	rec.ID = b.id()
	rec.BuildID = d.ID
	d.Maintenance = append(d.Maintenance, rec)
	stored := rec
	b.maintenance[rec.ID] = &stored
	return &rec
}

func (b *FakeBackend) maintenanceOwned(maintenanceID int64) (*model.MaintenanceRecord, error) {
	m, ok := b.maintenance[maintenanceID]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Maintenance record not found")
	}
	if _, err := b.ownedBuild(m.BuildID); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *FakeBackend) UploadAttachment(_ context.Context, maintenanceID int64, filename, description string, r io.Reader) (*model.Attachment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UploadAttachment"); err != nil {
		return nil, err
	}
	if _, err := b.maintenanceOwned(maintenanceID); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := b.charge(int64(len(data))); err != nil {
		return nil, err
	}
	att := model.Attachment{
		ID:            b.id(),
		MaintenanceID: maintenanceID,
		FilePath:      fmt.Sprintf("uploads/maintenance/%d/%s", maintenanceID, filename),
		FileName:      filename,
		FileSizeBytes: int64(len(data)),
		Description:   description,
		UploadedAt:    b.clock.Now().UTC().Format("2006-01-02T15:04:05"),
	}
	b.attachments[maintenanceID] = append(b.attachments[maintenanceID], att)
	return &att, nil
}

func (b *FakeBackend) ListAttachments(_ context.Context, maintenanceID int64) ([]model.Attachment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListAttachments"); err != nil {
		return nil, err
	}
	if _, err := b.maintenanceOwned(maintenanceID); err != nil {
		return nil, err
	}
	return append([]model.Attachment{}, b.attachments[maintenanceID]...), nil
}

// --- TodoAPI ---

func (b *FakeBackend) ListTodos(_ context.Context, buildID int64, filter model.TodoFilter) ([]model.Todo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListTodos"); err != nil {
		return nil, err
	}
	if _, err := b.ownedBuild(buildID); err != nil {
		return nil, err
	}
	out := []model.Todo{}
	for _, t := range b.todos {
		if t.BuildID != buildID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (b *FakeBackend) TodoStats(_ context.Context, buildID int64) (*model.TodoStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("TodoStats"); err != nil {
		return nil, err
	}
	if _, err := b.ownedBuild(buildID); err != nil {
		return nil, err
	}
	st := &model.TodoStats{StatusCounts: map[string]int{}, CategoryCounts: map[string]int{}}
	today := b.clock.Now().UTC().Format("2006-01-02")
	for _, t := range b.todos {
		if t.BuildID != buildID {
			continue
		}
		st.StatusCounts[string(t.Status)]++
		if t.Category != "" {
			st.CategoryCounts[t.Category]++
		}
		if t.Active() && t.DueDate != "" && t.DueDate < today {
			st.OverdueCount++
		}
		if v, ok := t.EstimatedCost.Float(); ok {
			st.TotalEstimatedCost += v
		}
		if v, ok := t.ActualCost.Float(); ok {
			st.TotalActualCost += v
		}
	}
	return st, nil
}

func (b *FakeBackend) ownedTodo(todoID int64) (*model.Todo, error) {
	t, ok := b.todos[todoID]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Todo not found")
	}
	if _, err := b.ownedBuild(t.BuildID); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *FakeBackend) GetTodo(_ context.Context, todoID int64) (*model.Todo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetTodo"); err != nil {
		return nil, err
	}
	t, err := b.ownedTodo(todoID)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (b *FakeBackend) CreateTodo(_ context.Context, buildID int64, in model.TodoInput) (*model.TodoCreated, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateTodo"); err != nil {
		return nil, err
	}
	if _, err := b.ownedBuild(buildID); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, Reject(http.StatusUnprocessableEntity, "title is required")
	}
	prio := in.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	maxOrder := -1
	for _, t := range b.todos {
		if t.BuildID == buildID && t.SortOrder > maxOrder {
			maxOrder = t.SortOrder
		}
	}
	now := model.NewTimestamp(b.clock.Now())
	t := &model.Todo{
		ID:            b.id(),
		BuildID:       buildID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Priority:      prio,
		Status:        model.TodoPending,
		DueDate:       in.DueDate,
		EstimatedCost: floatAmount(in.EstimatedCost),
		CustomFields:  in.CustomFields,
		SortOrder:     maxOrder + 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.todos[t.ID] = t
	return &model.TodoCreated{Success: true, ID: t.ID, CreatedAt: now, Message: "Todo created successfully"}, nil
}

func (b *FakeBackend) UpdateTodo(_ context.Context, todoID int64, patch model.TodoPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UpdateTodo"); err != nil {
		return err
	}
	t, err := b.ownedTodo(todoID)
	if err != nil {
		return err
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.EstimatedCost != nil {
		t.EstimatedCost = floatAmount(patch.EstimatedCost)
	}
	if patch.CustomFields != nil {
		t.CustomFields = patch.CustomFields
	}
	if patch.SortOrder != nil {
		t.SortOrder = *patch.SortOrder
	}
	t.UpdatedAt = model.NewTimestamp(b.clock.Now())
	return nil
}

func (b *FakeBackend) CompleteTodo(_ context.Context, todoID int64, c model.TodoCompletion) (*model.TodoCompletionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CompleteTodo"); err != nil {
		return nil, err
	}
	t, err := b.ownedTodo(todoID)
	if err != nil {
		return nil, err
	}
	var recID *int64
	if c.CreateMaintenanceRecord {
		typ := t.Category
		if typ == "" {
			typ = "General"
		}
		rec := b.addMaintenance(b.builds[t.BuildID], model.MaintenanceRecord{
			MaintenanceType: typ,
			Timestamp:       b.clock.Now().UTC().Format("2006-01-02T15:04:05"),
			Notes:           strings.TrimSpace(t.Title + "\n\n" + c.CompletionNotes),
			OdometerMiles:   floatAmount(c.OdometerAtCompletion),
			EngineHours:     floatAmount(c.EngineHoursAtCompletion),
			Cost:            floatAmount(c.ActualCost),
		})
		recID = &rec.ID
	}
	now := model.NewTimestamp(b.clock.Now())
	t.Status = model.TodoCompleted
	t.CompletedAt = &now
	t.CompletionNotes = c.CompletionNotes
	t.OdometerAtCompletion = floatAmount(c.OdometerAtCompletion)
	t.EngineHoursAtCompletion = floatAmount(c.EngineHoursAtCompletion)
	t.ActualCost = floatAmount(c.ActualCost)
	t.MaintenanceRecordID = recID
	t.UpdatedAt = now
	return &model.TodoCompletionResult{Success: true, Message: "Todo marked as completed", MaintenanceRecordID: recID}, nil
}

// ReopenTodo resets the status and completed_at only. The other completion
// fields stay, as on the real backend.
func (b *FakeBackend) ReopenTodo(_ context.Context, todoID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ReopenTodo"); err != nil {
		return err
	}
	t, err := b.ownedTodo(todoID)
	if err != nil {
		return err
	}
	t.Status = model.TodoPending
	t.CompletedAt = nil
	t.UpdatedAt = model.NewTimestamp(b.clock.Now())
	return nil
}

func (b *FakeBackend) DeleteTodo(_ context.Context, todoID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("DeleteTodo"); err != nil {
		return err
	}
	if _, err := b.ownedTodo(todoID); err != nil {
		return err
	}
	delete(b.todos, todoID)
	return nil
}

func (b *FakeBackend) ReorderTodos(_ context.Context, buildID int64, todoIDs []int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ReorderTodos"); err != nil {
		return err
	}
	if _, err := b.ownedBuild(buildID); err != nil {
		return err
	}
	for i, id := range todoIDs {
		if t, ok := b.todos[id]; ok && t.BuildID == buildID {
			t.SortOrder = i
		}
	}
	return nil
}

// --- NoteAPI ---

func (b *FakeBackend) ListNotes(_ context.Context, buildID int64, component model.ComponentType) ([]model.ComponentNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListNotes"); err != nil {
		return nil, err
	}
	if _, ok := b.builds[buildID]; !ok {
		return nil, Reject(http.StatusNotFound, "Build not found")
	}
	return append([]model.ComponentNote{}, b.notes[noteKey{buildID, component}]...), nil
}

func (b *FakeBackend) AddNote(_ context.Context, buildID int64, component model.ComponentType, content string) (*model.ComponentNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("AddNote"); err != nil {
		return nil, err
	}
	if _, err := b.ownedBuild(buildID); err != nil {
		return nil, err
	}
	u := b.users[b.current]
	n := model.ComponentNote{
		ID:        "note-" + strconv.FormatInt(b.id(), 10),
		UserID:    u.ID,
		UserName:  u.DisplayName(),
		Content:   content,
		Timestamp: model.NewTimestamp(b.clock.Now()),
	}
	k := noteKey{buildID, component}
	b.notes[k] = append(b.notes[k], n)
	return &n, nil
}

func (b *FakeBackend) authoredNote(buildID int64, component model.ComponentType, noteID string) (int, error) {
	u, err := b.user()
	if err != nil {
		return 0, err
	}
	for i, n := range b.notes[noteKey{buildID, component}] {
		if n.ID != noteID {
			continue
		}
		if n.UserID != u.ID {
			return 0, Reject(http.StatusForbidden, "You can only modify your own notes")
		}
		return i, nil
	}
	return 0, Reject(http.StatusNotFound, "Note not found")
}

func (b *FakeBackend) UpdateNote(_ context.Context, buildID int64, component model.ComponentType, noteID, content string) (*model.ComponentNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UpdateNote"); err != nil {
		return nil, err
	}
	i, err := b.authoredNote(buildID, component, noteID)
	if err != nil {
		return nil, err
	}
	k := noteKey{buildID, component}
	now := model.NewTimestamp(b.clock.Now())
	b.notes[k][i].Content = content
	b.notes[k][i].LastEdited = &now
	n := b.notes[k][i]
	return &n, nil
}

func (b *FakeBackend) DeleteNote(_ context.Context, buildID int64, component model.ComponentType, noteID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("DeleteNote"); err != nil {
		return err
	}
	i, err := b.authoredNote(buildID, component, noteID)
	if err != nil {
		return err
	}
	k := noteKey{buildID, component}
	b.notes[k] = append(b.notes[k][:i], b.notes[k][i+1:]...)
	return nil
}

// --- SubscriptionAPI ---

func (b *FakeBackend) SubscriptionStatus(context.Context) (*model.SubscriptionStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("SubscriptionStatus"); err != nil {
		return nil, err
	}
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	used := 0
	for _, d := range b.builds {
		if d.UserID == u.ID {
			used++
		}
	}
	st := &model.SubscriptionStatus{
		Tier:              b.tier,
		Status:            "active",
		BuildsUsed:        used,
		BuildsLimit:       b.buildLimit,
		StorageUsedBytes:  b.storageUsed,
		StorageUsedMB:     float64(b.storageUsed) / 1024 / 1024,
		StorageLimitBytes: b.storageLimit,
		StorageLimitMB:    float64(b.storageLimit) / 1024 / 1024,
	}
	if b.buildLimit > 0 {
		st.BuildUsagePercentage = float64(used) / float64(b.buildLimit) * 100
	}
	if b.storageLimit > 0 {
		st.StorageUsagePercentage = float64(b.storageUsed) / float64(b.storageLimit) * 100
	}
	return st, nil
}

func (b *FakeBackend) CreateCheckoutSession(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateCheckoutSession"); err != nil {
		return "", err
	}
	if _, err := b.user(); err != nil {
		return "", err
	}
	return b.CheckoutURL, nil
}

func (b *FakeBackend) CreatePortalSession(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreatePortalSession"); err != nil {
		return "", err
	}
	if _, err := b.user(); err != nil {
		return "", err
	}
	if b.tier != model.TierPremier {
		return "", Reject(http.StatusBadRequest, "No active subscription found")
	}
	return b.PortalURL, nil
}

// --- ComponentAPI ---

func (b *FakeBackend) table(t model.ComponentType) (map[int64]*model.Component, error) {
	if _, err := model.ParseComponentType(string(t)); err != nil {
		return nil, Reject(http.StatusBadRequest, "Invalid component type: "+string(t))
	}
	tbl, ok := b.components[t]
	if !ok {
		tbl = make(map[int64]*model.Component)
		b.components[t] = tbl
	}
	return tbl, nil
}

func (b *FakeBackend) componentSize(data json.RawMessage) (int64, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return 0, Reject(http.StatusUnprocessableEntity, "invalid component data")
	}
	if buf.Len() > model.MaxComponentDataBytes {
		return 0, Reject(http.StatusRequestEntityTooLarge, "Component data too large")
	}
	return int64(buf.Len()), nil
}

func (b *FakeBackend) CreateComponent(_ context.Context, t model.ComponentType, in model.ComponentInput) (*model.Component, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateComponent"); err != nil {
		return nil, err
	}
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	tbl, err := b.table(t)
	if err != nil {
		return nil, err
	}
	size, err := b.componentSize(in.ComponentData)
	if err != nil {
		return nil, err
	}
	now := model.NewTimestamp(b.clock.Now())
	c := &model.Component{
		ID:            b.id(),
		UserID:        u.ID,
		Name:          in.Name,
		Description:   in.Description,
		IsTemplate:    in.IsTemplate,
		ComponentData: append(json.RawMessage(nil), in.ComponentData...),
		DataSizeBytes: size,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tbl[c.ID] = c
	cp := *c
	return &cp, nil
}

func (b *FakeBackend) GetComponent(_ context.Context, t model.ComponentType, id int64) (*model.Component, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetComponent"); err != nil {
		return nil, err
	}
	tbl, err := b.table(t)
	if err != nil {
		return nil, err
	}
	c, ok := tbl[id]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Component not found")
	}
	cp := *c
	return &cp, nil
}

func (b *FakeBackend) ownedComponent(t model.ComponentType, id int64) (*model.Component, error) {
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	tbl, err := b.table(t)
	if err != nil {
		return nil, err
	}
	c, ok := tbl[id]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Component not found")
	}
	if c.UserID != u.ID {
		return nil, Reject(http.StatusForbidden, "Not authorized to modify this component")
	}
	return c, nil
}

func (b *FakeBackend) UpdateComponent(_ context.Context, t model.ComponentType, id int64, in model.ComponentInput) (*model.Component, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UpdateComponent"); err != nil {
		return nil, err
	}
	c, err := b.ownedComponent(t, id)
	if err != nil {
		return nil, err
	}
	size, err := b.componentSize(in.ComponentData)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Description = in.Description
	c.IsTemplate = in.IsTemplate
	c.ComponentData = append(json.RawMessage(nil), in.ComponentData...)
	c.DataSizeBytes = size
	c.UpdatedAt = model.NewTimestamp(b.clock.Now())
	cp := *c
	return &cp, nil
}

func (b *FakeBackend) DeleteComponent(_ context.Context, t model.ComponentType, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("DeleteComponent"); err != nil {
		return err
	}
	if _, err := b.ownedComponent(t, id); err != nil {
		return err
	}
	delete(b.components[t], id)
	return nil
}

func (b *FakeBackend) ListTemplates(_ context.Context, t model.ComponentType) ([]model.Component, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListTemplates"); err != nil {
		return nil, err
	}
	tbl, err := b.table(t)
	if err != nil {
		return nil, err
	}
	out := []model.Component{}
	for _, c := range tbl {
		if c.IsTemplate {
			cp := *c
			cp.ComponentData = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *FakeBackend) CloneComponent(_ context.Context, t model.ComponentType, id int64, newName string) (*model.Component, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CloneComponent"); err != nil {
		return nil, err
	}
	u, err := b.user()
	if err != nil {
		return nil, err
	}
	tbl, err := b.table(t)
	if err != nil {
		return nil, err
	}
	src, ok := tbl[id]
	if !ok {
		return nil, Reject(http.StatusNotFound, "Component not found")
	}
	now := model.NewTimestamp(b.clock.Now())
	c := &model.Component{
		ID:            b.id(),
		UserID:        u.ID,
		Name:          newName,
		Description:   src.Description,
		ComponentData: append(json.RawMessage(nil), src.ComponentData...),
		DataSizeBytes: src.DataSizeBytes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tbl[c.ID] = c
	cp := *c
	return &cp, nil
}

var _ garage.Backend = (*FakeBackend)(nil)
