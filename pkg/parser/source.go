package parser

import "strings"

// Source identifies which parsing grammar applies to an email body.
type Source int

const (
	SourceUnknown Source = iota
	SourceGoogleFlights
	SourceSecretFlying
)

// Label values as they appear on the mailbox side.
const (
	LabelGoogleFlights = "googleflights"
	LabelSecretFlying  = "secretflying"
)

// ParseSource maps a mailbox label to a known source, case-insensitively.
// Unrecognized labels map to SourceUnknown rather than an error.
func ParseSource(label string) Source {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelGoogleFlights:
		return SourceGoogleFlights
	case LabelSecretFlying:
		return SourceSecretFlying
	default:
		return SourceUnknown
	}
}

// String returns the canonical label for the source.
func (s Source) String() string {
	switch s {
	case SourceGoogleFlights:
		return LabelGoogleFlights
	case SourceSecretFlying:
		return LabelSecretFlying
	default:
		return "unknown"
	}
}
