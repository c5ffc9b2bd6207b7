// Package stroke turns a stream of digitizer samples into line segments.
//
// A segment is only produced between two consecutive contact samples; a
// lift always ends the current stroke so that strokes are never joined.
package stroke

import "github.com/juruen/sigpad/model"

// PenState is Idle when Tracking is false, otherwise it holds the last
// contact point.
type PenState struct {
	Tracking bool
	X, Y     float64
}

var Idle = PenState{}

// Reconstructor is not safe for concurrent use; the capture session
// serializes access.
type Reconstructor struct {
	state    PenState
	strokes  int
	segments int
}

// Feed advances the state machine. The returned segment is only valid
// when ok is true.
func (r *Reconstructor) Feed(s model.Sample) (seg model.Segment, ok bool) {
	if !s.Contact {
		r.state = Idle
		return seg, false
	}

	if !r.state.Tracking {
		r.state = PenState{Tracking: true, X: s.X, Y: s.Y}
		r.strokes++
		return seg, false
	}

	seg = model.Segment{FromX: r.state.X, FromY: r.state.Y, ToX: s.X, ToY: s.Y}
	r.state = PenState{Tracking: true, X: s.X, Y: s.Y}
	r.segments++
	return seg, true
}

func (r *Reconstructor) Reset() {
	*r = Reconstructor{}
}

func (r *Reconstructor) State() PenState {
	return r.state
}

// Strokes is the number of strokes started since the last reset,
// including point-only contacts.
func (r *Reconstructor) Strokes() int {
	return r.strokes
}

func (r *Reconstructor) Segments() int {
	return r.segments
}

// Segments runs a fresh reconstructor over samples.
func Segments(samples []model.Sample) []model.Segment {
	var r Reconstructor
	var out []model.Segment
	for _, s := range samples {
		if seg, ok := r.Feed(s); ok {
			out = append(out, seg)
		}
	}
	return out
}
