package types

import "time"

// Default archival windows. These are policy parameters, not hard constants;
// deployments tune them via configuration.
const (
	DefaultHotWindow  = 7 * 24 * time.Hour
	DefaultColdWindow = 180 * 24 * time.Hour
	DefaultDeepWindow = 1095 * 24 * time.Hour
)

// ArchivePolicy holds the age thresholds that drive tier transitions.
// A session older than HotWindow is eligible for cold archival, older than
// ColdWindow for deep archival, and older than DeepWindow for retention
// deletion. Age is measured as now - session.UpdatedAt.
type ArchivePolicy struct {
	HotWindow  time.Duration
	ColdWindow time.Duration
	DeepWindow time.Duration
}

// DefaultArchivePolicy returns the 7d / 180d / 1095d windows.
func DefaultArchivePolicy() ArchivePolicy {
	return ArchivePolicy{
		HotWindow:  DefaultHotWindow,
		ColdWindow: DefaultColdWindow,
		DeepWindow: DefaultDeepWindow,
	}
}

// Normalize fills zero or negative windows with the defaults and restores the
// hot < cold < deep ordering if a misconfiguration inverted it.
func (p *ArchivePolicy) Normalize() {
	if p.HotWindow <= 0 {
		p.HotWindow = DefaultHotWindow
	}
	if p.ColdWindow <= 0 {
		p.ColdWindow = DefaultColdWindow
	}
	if p.DeepWindow <= 0 {
		p.DeepWindow = DefaultDeepWindow
	}
	if p.ColdWindow < p.HotWindow {
		p.ColdWindow = p.HotWindow
	}
	if p.DeepWindow < p.ColdWindow {
		p.DeepWindow = p.ColdWindow
	}
}

// EligibleForCold reports whether a session last touched at updatedAt has
// aged past the hot window.
func (p ArchivePolicy) EligibleForCold(updatedAt, now time.Time) bool {
	return now.Sub(updatedAt) > p.HotWindow
}

// EligibleForDeep reports whether a session has aged past the cold window.
func (p ArchivePolicy) EligibleForDeep(updatedAt, now time.Time) bool {
	return now.Sub(updatedAt) > p.ColdWindow
}

// EligibleForPurge reports whether a session has aged past the deep window
// and falls to retention deletion.
func (p ArchivePolicy) EligibleForPurge(updatedAt, now time.Time) bool {
	return now.Sub(updatedAt) > p.DeepWindow
}
