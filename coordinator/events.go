package coordinator

import "time"

// Kind identifies a survey type. At most one job of each kind runs at a time.
type Kind string

const (
	KindSegment Kind = "segment"
	KindHost    Kind = "host"
)

type EventType string

const (
	EventProgress  EventType = "progress"
	EventFinding   EventType = "finding"
	EventCompleted EventType = "completed"
)

// Event is the envelope delivered to consumers. Exactly one of Progress, Finding
// and Completion is set, matching Type.
type Event struct {
	Type       EventType        `json:"type"`
	JobID      string           `json:"jobId"`
	Survey     Kind             `json:"survey"`
	Time       time.Time        `json:"time"`
	Progress   *ProgressEvent   `json:"progress,omitempty"`
	Finding    *FindingEvent    `json:"finding,omitempty"`
	Completion *CompletionEvent `json:"completion,omitempty"`
}

type ProgressEvent struct {
	Message string `json:"message"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
}

type FindingEvent struct {
	Kind         Kind   `json:"kind"`
	Prefix       string `json:"prefix,omitempty"`
	SampleHost   string `json:"sampleHost,omitempty"`
	Address      string `json:"address,omitempty"`
	Port         uint16 `json:"port,omitempty"`
	MAC          string `json:"mac,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

type CompletionEvent struct {
	TotalFound int  `json:"totalFound"`
	Cancelled  bool `json:"cancelled"`
}
