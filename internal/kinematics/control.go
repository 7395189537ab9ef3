package kinematics

import "math"

// Term names one input of the control law.
type Term string

const (
	TermNone         Term = ""
	TermBase         Term = "base"
	TermCap          Term = "cap"
	TermBrake        Term = "brake"
	TermEmergency    Term = "emergency"
	TermStopApproach Term = "stop_approach"
)

// Candidate is an acceleration proposed by one term, present only when Set.
type Candidate struct {
	Value float64
	Set   bool
}

func propose(v float64) Candidate { return Candidate{Value: v, Set: true} }

// Candidates is the fixed set of accelerations the control law chooses from.
// The most restrictive present value wins.
type Candidates struct {
	Base         Candidate
	Cap          Candidate
	Brake        Candidate
	Emergency    Candidate
	StopApproach Candidate
}

// Select fills the candidates for a vehicle moving at v with gapAhead metres
// to the train in front and gapStop metres to its next stop. Either gap may be
// +Inf when there is nothing ahead.
func Select(m MotionModel, v, gapAhead, gapStop float64) Candidates {
	c := Candidates{Base: propose(m.Acceleration())}
	if v >= m.VMax() {
		c.Cap = propose(0)
	}
	if gapAhead <= m.BrakingDistance(v) {
		c.Brake = propose(-m.Deceleration())
	}
	if gapAhead <= m.EmergencyBrakingDistance(v) {
		c.Emergency = propose(-m.EmergencyDeceleration())
	}
	if !math.IsInf(gapStop, 1) && v > 0 {
		c.StopApproach = propose(m.StopApproach(v, gapStop))
	}
	return c
}

// Min returns the smallest present candidate and the term that proposed it.
// Ties go to the earlier term in declaration order.
func (c Candidates) Min() (float64, Term) {
	best, term := math.Inf(1), TermNone
	for _, t := range []struct {
		c    Candidate
		term Term
	}{
		{c.Base, TermBase},
		{c.Cap, TermCap},
		{c.Brake, TermBrake},
		{c.Emergency, TermEmergency},
		{c.StopApproach, TermStopApproach},
	} {
		if t.c.Set && t.c.Value < best {
			best, term = t.c.Value, t.term
		}
	}
	if term == TermNone {
		return 0, TermNone
	}
	return best, term
}
