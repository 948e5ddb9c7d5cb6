package model

import "time"

// DecisionKind is the outcome of one recognition iteration.
type DecisionKind string

const (
	Matched      DecisionKind = "matched"
	NoCandidates DecisionKind = "no_candidates"
	NoMatch      DecisionKind = "no_match"
)

// Decision is reported once per poll of the recognition loop.
type Decision struct {
	Kind       DecisionKind `json:"kind"`
	Plate      string       `json:"plate,omitempty"`
	Similarity float64      `json:"similarity,omitempty"`
	Candidates []string     `json:"candidates,omitempty"`
	FrameSeq   uint64       `json:"frame_seq,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`

	// Error is set when the recognizer failed; Kind is then NoCandidates.
	Error string `json:"error,omitempty"`

	// Frame holds the evaluated image for sinks that archive evidence.
	Frame []byte `json:"-"`
}

// IsMatch reports whether the target plate was found.
func (d Decision) IsMatch() bool {
	return d.Kind == Matched
}

// Failed reports whether the recognizer errored instead of producing candidates.
func (d Decision) Failed() bool {
	return d.Error != ""
}
