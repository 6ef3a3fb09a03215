package types

// Incident classification and lifecycle values. These are stored as plain
// strings so they stay readable in the database and over the wire.
const (
	IncidentTypeOffline       = "offline"
	IncidentTypeCPU           = "cpu"
	IncidentTypeLatency       = "latency"
	IncidentTypeInterfaceDown = "interface_down"

	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"

	StatusOpen       = "open"
	StatusAck        = "ack"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"

	SLAOk     = "ok"
	SLAWarn   = "warn"
	SLABreach = "breach"
)

var incidentTypes = map[string]bool{
	IncidentTypeOffline:       true,
	IncidentTypeCPU:           true,
	IncidentTypeLatency:       true,
	IncidentTypeInterfaceDown: true,
}

func ValidIncidentType(t string) bool {
	return incidentTypes[t]
}

// SeverityRank orders severities for "upgrade only" comparisons.
// Unknown values rank below info.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

func ValidSeverity(s string) bool {
	return SeverityRank(s) > 0
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusAck, StatusInProgress, StatusResolved:
		return true
	}
	return false
}
