// Package session models the interactive view state of one analysis
// session as an explicit state machine: a State value plus a pure Apply
// function consuming actions. The views mirror the capture flow:
// camera → preview → details, with settings and credential entry on the
// side.
//
// Each inference round is tagged with a monotonically increasing sequence
// number; results carrying a stale sequence are discarded, so a response
// from a superseded request can never clobber newer state.
package session

import "github.com/menta2k/carb-analyzer/pkg/types"

// View is the currently presented screen.
type View string

const (
	ViewCamera   View = "camera"
	ViewPreview  View = "preview"
	ViewDetails  View = "details"
	ViewSettings View = "settings"
	ViewKeyEntry View = "keyEntry"
)

// State is the whole mutable session: one current record, replaced
// wholesale on each new capture.
type State struct {
	View          View
	HasCredential bool
	Loading       bool

	// Seq is the sequence number of the latest issued inference round.
	Seq uint64

	Record *types.NutritionRecord
	Status types.ParseStatus
	Err    string
}

// Initial returns the session start state.
func Initial(hasCredential bool) State {
	return State{View: ViewCamera, HasCredential: hasCredential}
}

// Action is a user interaction or an inference outcome.
type Action interface{ isAction() }

// Capture starts an inference round from a camera frame.
type Capture struct{}

// Upload starts an inference round from a selected file.
type Upload struct{}

// Retry re-runs the round-trip from the already-captured image.
type Retry struct{}

// ResultReceived delivers a finished analysis for the round with the
// given sequence number.
type ResultReceived struct {
	Seq    uint64
	Record types.NutritionRecord
	Status types.ParseStatus
}

// ResultFailed delivers a failed round-trip for the given sequence.
type ResultFailed struct {
	Seq uint64
	Err string
}

// ShowDetails opens the detail view for a successful result.
type ShowDetails struct{}

// Dismiss leaves the current view back to the camera.
type Dismiss struct{}

// OpenSettings opens the settings view from any state.
type OpenSettings struct{}

// CredentialSaved records that a credential was stored.
type CredentialSaved struct{}

// CredentialCleared records that the stored credential was removed.
type CredentialCleared struct{}

func (Capture) isAction()           {}
func (Upload) isAction()            {}
func (Retry) isAction()             {}
func (ResultReceived) isAction()    {}
func (ResultFailed) isAction()      {}
func (ShowDetails) isAction()       {}
func (Dismiss) isAction()           {}
func (OpenSettings) isAction()      {}
func (CredentialSaved) isAction()   {}
func (CredentialCleared) isAction() {}

// Apply computes the next session state. It is pure: callers own the
// side effects (issuing the inference request when a round starts,
// persisting credentials).
func Apply(s State, a Action) State {
	switch a := a.(type) {
	case Capture, Upload, Retry:
		return startRound(s)

	case ResultReceived:
		if a.Seq != s.Seq {
			return s // stale response from a superseded round
		}
		s.Loading = false
		rec := a.Record
		s.Record = &rec
		s.Status = a.Status
		s.Err = ""
		return s

	case ResultFailed:
		if a.Seq != s.Seq {
			return s
		}
		s.Loading = false
		s.Err = a.Err
		return s

	case ShowDetails:
		if s.View == ViewPreview && !s.Loading && s.Record != nil && s.Err == "" {
			s.View = ViewDetails
		}
		return s

	case Dismiss:
		s.View = ViewCamera
		return s

	case OpenSettings:
		s.View = ViewSettings
		return s

	case CredentialSaved:
		s.HasCredential = true
		s.View = ViewCamera
		return s

	case CredentialCleared:
		s.HasCredential = false
		return s
	}

	return s
}

// startRound begins a new inference round, replacing any prior record.
// Without a stored credential the session redirects to credential entry
// before any network call is attempted.
func startRound(s State) State {
	if !s.HasCredential {
		s.View = ViewKeyEntry
		return s
	}
	s.View = ViewPreview
	s.Loading = true
	s.Seq++
	s.Record = nil
	s.Status = ""
	s.Err = ""
	return s
}

// RoundActive reports whether the state expects a result for seq.
func (s State) RoundActive(seq uint64) bool {
	return s.Loading && s.Seq == seq
}
