package jobs

import "fmt"

// Offer exposes a job to the units of one room for the duration of a scan.
// Its place count is fixed at scan time and only ever goes down.
type Offer struct {
	Job    Job
	places uint32
}

func NewOffer(job Job, places uint32) *Offer {
	return &Offer{Job: job, places: places}
}

func (o *Offer) Places() uint32 { return o.places }

func (o *Offer) Available() bool { return o.places > 0 }

// Take claims one place. It reports false when none are left.
func (o *Offer) Take() bool {
	if o.places == 0 {
		return false
	}
	o.places--
	return true
}

// Exhaust closes the offer for the rest of the scan.
func (o *Offer) Exhaust() { o.places = 0 }

func (o *Offer) String() string { return fmt.Sprintf("%s[%d]", o.Job, o.places) }

// Pool is the ordered set of offers built by one scan. Units evaluate it in
// turn and mutate place counts in place, so order of evaluation matters.
type Pool []*Offer

// Available counts the offers that can still be taken.
func (p Pool) Available() int {
	n := 0
	for _, o := range p {
		if o.Available() {
			n++
		}
	}
	return n
}

// Find returns the first offer for job, if any.
func (p Pool) Find(job Job) (*Offer, bool) {
	for _, o := range p {
		if o.Job.Equal(job) {
			return o, true
		}
	}
	return nil, false
}

// CountByKind tallies offers per kind, for reports.
func (p Pool) CountByKind() map[Kind]int {
	out := make(map[Kind]int, len(Kinds))
	for _, o := range p {
		out[o.Job.Kind()]++
	}
	return out
}
