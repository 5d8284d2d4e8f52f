package enums

// TimelineStep is the four-state progress indicator shown to the guest.
// It is derived, never persisted.
type TimelineStep string

const (
	TimelineStepPlacing  TimelineStep = "placing"
	TimelineStepCooking  TimelineStep = "cooking"
	TimelineStepServed   TimelineStep = "served"
	TimelineStepFinished TimelineStep = "finished"
)

// String implements fmt.Stringer.
func (s TimelineStep) String() string {
	return string(s)
}
