package domain

import "time"

// RenderMode selects how the new background is obtained.
type RenderMode string

const (
	// ModeInpaint keeps the product pixels and asks the diffusion service
	// to repaint everything outside the protected mask.
	ModeInpaint RenderMode = "inpaint"
	// ModeComposite generates a standalone background and alpha-composites
	// the extracted product cutout over it.
	ModeComposite RenderMode = "composite"
	// ModeBoth runs both methods and stores both results.
	ModeBoth RenderMode = "both"
)

// JobStatus enumerates render job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// RenderJob is a queued request to turn one uploaded product photo into
// one or more composited product shots.
type RenderJob struct {
	ID           string
	Status       JobStatus
	Mode         RenderMode
	SpecJSON     []byte
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssetKind classifies stored files.
type AssetKind string

const (
	AssetKindSource       AssetKind = "SOURCE"
	AssetKindResult       AssetKind = "RESULT"
	AssetKindStage        AssetKind = "STAGE"
	AssetKindContactSheet AssetKind = "CONTACT_SHEET"
	AssetKindComparison   AssetKind = "COMPARISON"
)

// Asset is a stored image: the uploaded source, a final render, or one of
// the intermediate visualization artifacts.
type Asset struct {
	ID         string
	JobID      string
	Kind       AssetKind
	StorageKey string
	MIME       string
	Bytes      int64
	Width      int
	Height     int
	Properties []byte
	CreatedAt  time.Time
}

// NormalizeMode sanitizes free-form user input into a supported mode.
func NormalizeMode(mode string) RenderMode {
	switch RenderMode(mode) {
	case ModeInpaint:
		return ModeInpaint
	case ModeBoth:
		return ModeBoth
	default:
		return ModeComposite
	}
}
