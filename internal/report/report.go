// Public domain.

// Package report defines the collation run's failure taxonomy and the
// manifest, the authoritative audit trail of the run.
//
// Every input object must be traceable from the manifest: it appears
// either through a group row (status and output of the group it joined)
// or through an object note (why it was set aside before coaddition).
package report

import "fmt"

// Kind is the closed set of failure kinds.  Manifest consumers and
// tests match on Kind, never on message text.
type Kind int

const (
	// InputError: a file could not be read or parsed.  The file is
	// skipped and the run continues.
	InputError Kind = iota
	// PositionError: an object lacks a usable position for the active
	// matching mode.  The object is reported unresolved, never matched.
	PositionError
	// CalibrationError: per-object flux calibration failed.  The object
	// is excluded from its group's combination.
	CalibrationError
	// CombinationError: a group had no usable members, or the numeric
	// combination itself failed.  The group is marked failed.
	CombinationError
	// ConfigurationError: invalid tolerance or threshold values.
	// Fatal before processing begins; never raised during processing.
	ConfigurationError
	// QualityError: an object was cut by a configured quality policy
	// (serendipitous detection, wavelength RMS) before clustering.
	QualityError
)

var kindNames = []string{
	"InputError",
	"PositionError",
	"CalibrationError",
	"CombinationError",
	"ConfigurationError",
	"QualityError",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Failure is a recorded per-object or per-group failure.
type Failure struct {
	Kind   Kind
	Object string // object key when the failure is per-object
	Detail string
}

func (f *Failure) Error() string {
	if f.Object == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Object, f.Detail)
}

// Status is the disposition of a group or set-aside object in the
// manifest.
type Status int

const (
	// StatusCoadded: group combined and written.
	StatusCoadded Status = iota
	// StatusValid: group passed validation; coaddition not attempted
	// (dry run).
	StatusValid
	// StatusInsufficient: fewer members than the configured minimum.
	StatusInsufficient
	// StatusFlagged: members disagree in a checked attribute.  Flagged
	// groups are surfaced but still coadded.
	StatusFlagged
	// StatusFailed: coaddition produced no combined spectrum.
	StatusFailed
	// StatusUnresolved: object had no usable position; never clustered.
	StatusUnresolved
	// StatusExcluded: object cut by quality policy before clustering.
	StatusExcluded
)

var statusNames = []string{
	"coadded",
	"valid",
	"insufficient-exposures",
	"flagged",
	"failed",
	"unresolved",
	"excluded",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}
