package tracking

import "backend-strideup/internal/shared/geo"

const (
	// MaxAccuracyM is the worst reported horizontal error still accepted.
	MaxAccuracyM = 50.0
	// MinSegmentM and MaxSegmentM bound (exclusively) a segment that counts
	// towards the total.
	MinSegmentM = 2.0
	MaxSegmentM = 100.0
)

// Outcome describes what Accept did with a sample. The zero value is
// reported by failed calls that never reached the accumulator.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeInaccurate
	OutcomeAnchored
	OutcomeCounted
	OutcomeJitter
	OutcomeJump
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeInaccurate:
		return "inaccurate"
	case OutcomeAnchored:
		return "anchored"
	case OutcomeCounted:
		return "counted"
	case OutcomeJitter:
		return "jitter"
	case OutcomeJump:
		return "jump"
	default:
		return "unknown"
	}
}

// Accumulator keeps the running distance of one tracking session. The zero
// value is ready to use. It is not safe for concurrent use; samples must be
// fed in capture order.
type Accumulator struct {
	total  float64
	last   Sample
	anchor bool
}

func (a *Accumulator) Reset() {
	a.total = 0
	a.last = Sample{}
	a.anchor = false
}

// Accept processes the next sample. The anchor advances on every sample that
// passes the accuracy filter, even when its segment is not counted.
func (a *Accumulator) Accept(s Sample) Outcome {
	if s.Accuracy != nil && *s.Accuracy > MaxAccuracyM {
		return OutcomeInaccurate
	}
	if !a.anchor {
		a.last = s
		a.anchor = true
		return OutcomeAnchored
	}

	segment := geo.HaversineMeters(a.last.Lat, a.last.Lng, s.Lat, s.Lng)
	a.last = s

	switch {
	case countsSegment(segment):
		a.total += segment
		return OutcomeCounted
	case segment >= MaxSegmentM:
		return OutcomeJump
	default:
		return OutcomeJitter
	}
}

func (a *Accumulator) Total() float64 {
	return a.total
}

// Last returns the current anchor, if any.
func (a *Accumulator) Last() (Sample, bool) {
	return a.last, a.anchor
}

func countsSegment(m float64) bool {
	return m > MinSegmentM && m < MaxSegmentM
}

// Replay feeds samples through a fresh accumulator, as a live session would
// have seen them.
func Replay(samples []Sample) *Accumulator {
	acc := &Accumulator{}
	for _, s := range samples {
		acc.Accept(s)
	}
	return acc
}
