package checkin

// Step is the session's position in the fixed question sequence. The order
// is linear: rating, went_well, didnt_go_well, rotating, then the session is
// removed.
type Step int

const (
	StepRating Step = iota
	StepWentWell
	StepDidntGoWell
	StepRotating
)

func (s Step) String() string {
	switch s {
	case StepRating:
		return "rating"
	case StepWentWell:
		return "went_well"
	case StepDidntGoWell:
		return "didnt_go_well"
	case StepRotating:
		return "rotating"
	default:
		return "unknown"
	}
}
