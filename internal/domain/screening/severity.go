package screening

// Severity is an ordered band. Higher values are more severe.
type Severity int

const (
	Minimal Severity = iota
	Mild
	Moderate
	ModeratelySevere
	Severe
)

func (s Severity) String() string {
	switch s {
	case Minimal:
		return "Minimal"
	case Mild:
		return "Mild"
	case Moderate:
		return "Moderate"
	case ModeratelySevere:
		return "Moderately Severe"
	case Severe:
		return "Severe"
	}
	return "Unknown"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type band struct {
	min      int
	severity Severity
}

// Lower bounds are inclusive.
var bands = map[Instrument][]band{
	PHQ9: {{20, Severe}, {15, ModeratelySevere}, {10, Moderate}, {5, Mild}, {0, Minimal}},
	GAD7: {{15, Severe}, {10, Moderate}, {5, Mild}, {0, Minimal}},
}

// Classify maps a total score to its severity band.
func Classify(score int, inst Instrument) Severity {
	for _, b := range bands[inst] {
		if score >= b.min {
			return b.severity
		}
	}
	return Minimal
}

// ReviewThreshold is the score at or above which either instrument flags the
// submission for doctor review.
const ReviewThreshold = 15

// RequiresReview reports whether a submission needs prompt doctor attention.
func RequiresReview(phq9, gad7 int) bool {
	return phq9 >= ReviewThreshold || gad7 >= ReviewThreshold
}
