// Package render draws garage view models as terminal text.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"garage-go/internal/garage"
	"garage-go/internal/model"
)

// BarCells is the width of a usage bar in characters.
const BarCells = 20

var (
	colorMuted       = lipgloss.Color("#8a8f98")
	colorAccent      = lipgloss.Color("#2196F3")
	colorSuccess     = lipgloss.Color("#8BC34A")
	colorWarning     = lipgloss.Color("#FFC107")
	colorDestructive = lipgloss.Color("#e53935")
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	danger  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true),
		label:   r.NewStyle().Bold(true).Foreground(colorAccent),
		muted:   r.NewStyle().Foreground(colorMuted),
		accent:  r.NewStyle().Foreground(colorAccent),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		danger:  r.NewStyle().Foreground(colorDestructive),
	}
}

// Renderer writes styled output to w. Colors are dropped when w is not a
// terminal.
type Renderer struct {
	w  io.Writer
	st styles
}

func New(w io.Writer) *Renderer {
	return &Renderer{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

func (r *Renderer) line(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Success prints a confirmation line.
func (r *Renderer) Success(format string, args ...any) {
	r.line("%s", r.st.success.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (r *Renderer) Warn(format string, args ...any) {
	r.line("%s", r.st.warning.Render(fmt.Sprintf(format, args...)))
}

// Bar draws pct as a bar of BarCells characters, clamped to [0, 100].
func Bar(pct float64) string {
	filled := int(garage.BarWidth(pct) * BarCells / 100)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", BarCells-filled) + "]"
}

// UsageBanner draws the account usage summary. An absent banner draws nothing.
func (r *Renderer) UsageBanner(b garage.UsageBanner) {
	st, ok := b.Status.Get()
	if !ok {
		return
	}
	style := r.st.muted
	switch b.State() {
	case garage.UsageAtLimit:
		style = r.st.danger
	case garage.UsageNearLimit:
		style = r.st.warning
	}

	r.line("%s %s plan", r.st.title.Render("Usage"), st.Tier)
	r.line("  Builds   %s %d/%d", style.Render(Bar(st.BuildUsagePercentage)), st.BuildsUsed, st.BuildsLimit)
	r.line("  Storage  %s %s/%s", style.Render(Bar(st.StorageUsagePercentage)),
		humanize.Bytes(uint64(max(st.StorageUsedBytes, 0))), humanize.Bytes(uint64(max(st.StorageLimitBytes, 0))))

	switch b.State() {
	case garage.UsageAtLimit:
		r.line("%s", r.st.danger.Render("You have reached your plan limit. Run `garage subscription upgrade` for more room."))
	case garage.UsageNearLimit:
		r.line("%s", r.st.warning.Render("You are close to your plan limit."))
	}
	r.line("")
}

// Builds lists builds one per line.
func (r *Renderer) Builds(builds []model.Build) {
	if len(builds) == 0 {
		r.line("No builds yet. Create one with `garage builds create NAME`.")
		return
	}
	for _, b := range builds {
		r.line("#%-5d %-30s %s", b.ID, b.Name, r.st.muted.Render(b.Slug))
	}
}

// Build draws the detail view of one build.
func (r *Renderer) Build(d *model.BuildDetail) {
	r.line("%s  %s", r.st.title.Render(d.Name), r.st.muted.Render(fmt.Sprintf("#%d %s", d.ID, d.Slug)))
	if owner := strings.TrimSpace(d.FirstName + " " + d.LastName); owner != "" {
		r.line("Owner: %s", owner)
	}
	if d.CreatedAt != "" {
		r.line("Created: %s", d.CreatedAt)
	}

	if keys := d.SpecKeys(); len(keys) > 0 {
		r.line("")
		r.line("%s", r.st.label.Render("Specs"))
		for _, k := range keys {
			r.line("  %-28s %v", k, d.Specs[k])
		}
	}

	var sections []string
	for _, s := range model.AllSections {
		if len(d.Sections[s]) > 0 {
			sections = append(sections, string(s))
		}
	}
	if len(sections) > 0 {
		r.line("")
		r.line("%s %s", r.st.label.Render("Sections"), strings.Join(sections, ", "))
	}

	parts := append(append([]model.Part{}, d.EngineParts...), d.VehicleParts...)
	if len(parts) > 0 {
		r.line("")
		r.line("%s", r.st.label.Render("Parts"))
		for _, p := range parts {
			cost := "-"
			if p.Cost != "" {
				cost = string(p.Cost)
			}
			r.line("  %-30s %-16s %s", p.Name, p.Brand, cost)
		}
	}
	r.line("")
	r.line("Total cost: %s", r.st.title.Render(garage.FormatCurrency(garage.BuildCost(d.EngineParts, d.VehicleParts))))

	if len(d.Maintenance) > 0 {
		r.line("")
		r.line("%s", r.st.label.Render("Maintenance"))
		for _, m := range d.Maintenance {
			r.line("  #%-5d %-12s %s", m.ID, dateOnly(m.Timestamp), m.MaintenanceType)
		}
	}
}

func dateOnly(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

// History draws the timeline, newest first, with the entry index used by
// `garage history diff`.
func (r *Renderer) History(h *garage.HistoryView) {
	if len(h.Snapshots) == 0 {
		r.line("No history recorded.")
		return
	}
	for i, s := range h.Snapshots {
		author := s.AuthorName()
		if author == "" {
			author = "-"
		}
		r.line("%3d  %s  %-8d %-28s %s", i, s.CreatedAt.Format("2006-01-02 15:04"), s.ID, s.Label(), r.st.muted.Render(author))
	}
}

// Changes draws the loaded diff. A failed load shows the message above the
// diff that is still on display.
func (r *Renderer) Changes(h *garage.HistoryView) {
	if h.Message != "" {
		r.line("%s", r.st.danger.Render(h.Message))
	}
	if h.Diff == nil {
		return
	}
	r.line("%s %d -> %d", r.st.title.Render("Changes"), h.Diff.SnapshotBefore.ID, h.Diff.SnapshotAfter.ID)
	if len(h.Changes) == 0 {
		r.line("No changes.")
		return
	}
	for _, c := range h.Changes {
		r.line("%s", r.st.label.Render(c.Field))
		for _, l := range strings.Split(c.Before, "\n") {
			r.line("%s", r.st.danger.Render("- "+l))
		}
		for _, l := range strings.Split(c.After, "\n") {
			r.line("%s", r.st.success.Render("+ "+l))
		}
	}
}

// TodoBoard draws the grouped todo list followed by the stats summary.
func (r *Renderer) TodoBoard(b *garage.TodoBoard) {
	groups := []struct {
		name  string
		todos []model.Todo
	}{
		{"Active", b.Active()},
		{"Completed", b.Completed()},
		{"Cancelled", b.Cancelled()},
	}
	for _, g := range groups {
		if len(g.todos) == 0 {
			continue
		}
		r.line("%s (%d)", r.st.label.Render(g.name), len(g.todos))
		for _, t := range g.todos {
			r.todo(&t)
		}
		r.line("")
	}

	stats, ok := b.Stats.Get()
	if !ok {
		r.line("%s", r.st.muted.Render("Stats unavailable"))
		return
	}
	r.line("%d pending, %d in progress, %d completed, %d overdue",
		stats.StatusCounts[string(model.TodoPending)],
		stats.StatusCounts[string(model.TodoInProgress)],
		stats.StatusCounts[string(model.TodoCompleted)],
		stats.OverdueCount)
	r.line("Estimated %s, actual %s",
		garage.FormatCurrency(decimalOf(stats.TotalEstimatedCost)),
		garage.FormatCurrency(decimalOf(stats.TotalActualCost)))
}

func decimalOf(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func (r *Renderer) todo(t *model.Todo) {
	priority := string(t.Priority)
	switch t.Priority {
	case model.PriorityUrgent:
		priority = r.st.danger.Render(priority)
	case model.PriorityHigh:
		priority = r.st.warning.Render(priority)
	}
	extra := ""
	if t.DueDate != "" {
		extra += " due " + dateOnly(t.DueDate)
	}
	if t.MaintenanceType != "" {
		extra += " -> " + t.MaintenanceType
	}
	r.line("  #%-5d [%s] %-40s %s%s", t.ID, statusMark(t.Status), t.Title, priority, r.st.muted.Render(extra))
}

func statusMark(s model.TodoStatus) string {
	switch s {
	case model.TodoInProgress:
		return ">"
	case model.TodoCompleted:
		return "x"
	case model.TodoCancelled:
		return "-"
	default:
		return " "
	}
}

// Notes draws a component's notes. Notes the viewer may change are marked
// with their id.
func (r *Renderer) Notes(b *garage.NoteBoard) {
	if len(b.Notes) == 0 {
		r.line("No notes.")
		return
	}
	for i := range b.Notes {
		n := &b.Notes[i]
		header := fmt.Sprintf("%s  %s", n.UserName, n.Timestamp.Format("2006-01-02 15:04"))
		if n.LastEdited != nil {
			header += " (edited)"
		}
		if b.CanModify(n) {
			header += "  " + r.st.accent.Render(n.ID)
		}
		r.line("%s", r.st.title.Render(header))
		r.line("  %s", strings.ReplaceAll(n.Content, "\n", "\n  "))
	}
}

// MaintenanceForm draws the parts table and the derived totals.
func (r *Renderer) MaintenanceForm(f *garage.MaintenanceForm) {
	r.line("%s  %s", r.st.title.Render(f.MaintenanceType), f.EventDate)
	for i, p := range f.Parts {
		if p.Empty() {
			continue
		}
		total := "-"
		if d, ok := f.LineTotal(i); ok {
			total = garage.FormatCurrency(d)
		}
		qty := p.Quantity
		if qty == "" {
			qty = "1"
		}
		r.line("  %-30s %4s x %-8s %10s", p.Description, qty, p.CostPerUnit, total)
	}
	r.line("Subtotal: %s", garage.FormatCurrency(f.Subtotal()))
	r.line("Total:    %s", r.st.title.Render(garage.FormatCurrency(f.Total())))
}

// Attachments lists uploaded maintenance files.
func (r *Renderer) Attachments(atts []model.Attachment) {
	if len(atts) == 0 {
		r.line("No attachments.")
		return
	}
	for _, a := range atts {
		name := a.FileName
		if name == "" {
			name = a.FilePath
		}
		r.line("#%-5d %-32s %8s  %s", a.ID, name, humanize.Bytes(uint64(max(a.FileSizeBytes, 0))), r.st.muted.Render(a.Description))
	}
}

// Subscription draws the plan detail view.
func (r *Renderer) Subscription(st *model.SubscriptionStatus) {
	r.line("%s %s (%s)", r.st.title.Render("Plan"), st.Tier, st.Status)
	r.line("Builds   %s %d/%d (%.0f%%)", Bar(st.BuildUsagePercentage), st.BuildsUsed, st.BuildsLimit, st.BuildUsagePercentage)
	r.line("Storage  %s %s/%s (%.0f%%)", Bar(st.StorageUsagePercentage),
		humanize.Bytes(uint64(max(st.StorageUsedBytes, 0))), humanize.Bytes(uint64(max(st.StorageLimitBytes, 0))), st.StorageUsagePercentage)
	if !st.EndDate.IsZero() {
		r.line("Renews   %s", humanize.Time(st.EndDate.Time))
	}
}

// Operations lists the local operation log.
func (r *Renderer) Operations(ops []*garage.Operation) {
	if len(ops) == 0 {
		r.line("No operations recorded.")
		return
	}
	for _, op := range ops {
		status := op.Status
		switch status {
		case "success":
			status = r.st.success.Render(status)
		case "error":
			status = r.st.danger.Render(status)
		}
		r.line("#%d  %-15s  %s  %-10s  %s", op.ID, op.Operation, op.StartedAt.Local().Format("2006-01-02 15:04:05"), status, op.Parameters)
	}
}

// Component draws one library component with its data document.
func (r *Renderer) Component(c *model.Component) {
	title := c.Name
	if c.IsTemplate {
		title += " (template)"
	}
	r.line("%s  %s", r.st.title.Render(title), r.st.muted.Render(fmt.Sprintf("#%d, %s", c.ID, humanize.Bytes(uint64(max(c.DataSizeBytes, 0))))))
	if c.Description != "" {
		r.line("%s", c.Description)
	}
	if len(c.ComponentData) > 0 {
		r.line("%s", string(c.ComponentData))
	}
}

// Components lists library components one per line.
func (r *Renderer) Components(cs []model.Component) {
	if len(cs) == 0 {
		r.line("No components.")
		return
	}
	for _, c := range cs {
		r.line("#%-5d %-32s %s", c.ID, c.Name, r.st.muted.Render(c.Description))
	}
}

// Changeset lists pending edits.
func (r *Renderer) Changeset(cs *garage.Changeset) {
	if cs.IsEmpty() {
		r.line("No pending changes for build %d.", cs.BuildID())
		return
	}
	r.line("%s for build %d", r.st.title.Render("Pending changes"), cs.BuildID())
	for _, e := range cs.Entries() {
		r.line("  %s = %s", r.st.accent.Render(e.Key), string(e.Value))
	}
}

// User draws the signed-in account.
func (r *Renderer) User(u *model.User) {
	r.line("%s <%s>", r.st.title.Render(u.DisplayName()), u.Email)
	if u.OAuthProvider != "" {
		r.line("Signed in with %s", u.OAuthProvider)
	}
}

// Lines prints values one per line in sorted order.
func (r *Renderer) Lines(values []string) {
	sorted := append([]string{}, values...)
	sort.Strings(sorted)
	for _, v := range sorted {
		r.line("%s", v)
	}
}
