package garage

// UsageState selects how the usage banner is drawn. It gates nothing; the
// backend enforces the limits.
type UsageState string

const (
	UsageNormal    UsageState = "normal"
	UsageNearLimit UsageState = "near-limit"
	UsageAtLimit   UsageState = "at-limit"
)

const (
	nearLimitPercent = 80
	atLimitPercent   = 100
)

// EvaluateUsage classifies the account from the backend's build and storage
// percentages. At-limit takes precedence over near-limit.
func EvaluateUsage(buildPct, storagePct float64) UsageState {
	switch {
	case buildPct >= atLimitPercent || storagePct >= atLimitPercent:
		return UsageAtLimit
	case buildPct >= nearLimitPercent || storagePct >= nearLimitPercent:
		return UsageNearLimit
	default:
		return UsageNormal
	}
}

// BarWidth clamps a percentage to [0, 100] for drawing a usage bar. The
// backend does not cap its percentages.
func BarWidth(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
