package garage

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"garage-go/internal/model"
)

// parseAmount parses a user or backend supplied number. Empty or malformed
// input yields ok=false.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// BuildCost sums the costs of the engine and vehicle parts. Absent or
// unparseable costs count as zero.
func BuildCost(engineParts, vehicleParts []model.Part) decimal.Decimal {
	total := decimal.Zero
	for _, parts := range [][]model.Part{engineParts, vehicleParts} {
		for _, p := range parts {
			if d, ok := parseAmount(string(p.Cost)); ok {
				total = total.Add(d)
			}
		}
	}
	return total
}

// FormatCurrency renders d as dollars with thousands separators and two
// decimals. Zero renders as "$0.00".
func FormatCurrency(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	return sign + "$" + humanize.BigComma(d.BigInt()) + fixed[len(fixed)-3:]
}

// PartLine is one row of the maintenance parts editor. Every field holds the
// raw text the user typed.
type PartLine struct {
	Description string
	Brand       string
	PartNumber  string
	Quantity    string
	CostPerUnit string
}

// Empty reports whether nothing was entered on the line.
func (l PartLine) Empty() bool {
	return l.Description == "" && l.Brand == "" && l.PartNumber == "" && l.Quantity == "" && l.CostPerUnit == ""
}

// LineTotal returns quantity times cost-per-unit. ok is false unless both are
// entered, in which case no line total is shown.
func LineTotal(l PartLine) (decimal.Decimal, bool) {
	if strings.TrimSpace(l.Quantity) == "" || strings.TrimSpace(l.CostPerUnit) == "" {
		return decimal.Zero, false
	}
	qty, _ := parseAmount(l.Quantity)
	cost, _ := parseAmount(l.CostPerUnit)
	return qty.Mul(cost), true
}

// PartsSubtotal sums quantity times cost over all lines. A line missing
// either operand contributes zero.
func PartsSubtotal(lines []PartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		qty, okQty := parseAmount(l.Quantity)
		cost, okCost := parseAmount(l.CostPerUnit)
		if okQty && okCost {
			total = total.Add(qty.Mul(cost))
		}
	}
	return total
}

// MaintenanceTotal is the parts subtotal plus labor.
func MaintenanceTotal(lines []PartLine, labor string) decimal.Decimal {
	total := PartsSubtotal(lines)
	if d, ok := parseAmount(labor); ok {
		total = total.Add(d)
	}
	return total
}

// flattenLine renders one part for the notes block. A missing quantity
// multiplies the unit cost by one.
func flattenLine(l PartLine) string {
	var details []string
	if l.Description != "" {
		details = append(details, l.Description)
	}
	if l.Brand != "" {
		details = append(details, "Brand: "+l.Brand)
	}
	if l.PartNumber != "" {
		details = append(details, "P/N: "+l.PartNumber)
	}
	if l.Quantity != "" {
		details = append(details, "Qty: "+l.Quantity)
	}
	if l.CostPerUnit != "" {
		qty, ok := parseAmount(l.Quantity)
		if !ok || qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		cost, _ := parseAmount(l.CostPerUnit)
		details = append(details, "Cost: $"+cost.StringFixed(2)+" ea, Total: $"+qty.Mul(cost).StringFixed(2))
	}
	return strings.Join(details, " | ")
}

// FlattenedParts is the multi-part editor collapsed into the single-part
// record shape the backend stores.
type FlattenedParts struct {
	// Notes is the parts block followed by the user's notes.
	Notes string

	// Brand, PartNumber and Quantity come from the first non-empty line.
	Brand      string
	PartNumber string
	Quantity   string
}

// FlattenParts collapses the parts editor into notes text and the
// single-part compatibility fields. The compatibility quantity defaults to
// "1" when the first line has none.
func FlattenParts(lines []PartLine, notes string) FlattenedParts {
	var valid []PartLine
	for _, l := range lines {
		if !l.Empty() {
			valid = append(valid, l)
		}
	}

	var sections []string
	if len(valid) > 0 {
		rendered := make([]string, len(valid))
		for i, l := range valid {
			rendered[i] = flattenLine(l)
		}
		sections = append(sections, "Parts:\n"+strings.Join(rendered, "\n"))
	}
	if notes != "" {
		sections = append(sections, "\nNotes:\n"+notes)
	}

	out := FlattenedParts{Notes: strings.Join(sections, "\n")}
	if len(valid) > 0 {
		first := valid[0]
		out.Brand = first.Brand
		out.PartNumber = first.PartNumber
		out.Quantity = first.Quantity
		if out.Quantity == "" {
			out.Quantity = "1"
		}
	}
	return out
}
