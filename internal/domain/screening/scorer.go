package screening

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mindful/mindful/internal/platform/apperr"
)

// AnswerSet maps "<instrument>_<questionId>" to the selected ordinal.
type AnswerSet map[string]int

// MissingAnswerPolicy decides what an absent answer contributes.
type MissingAnswerPolicy string

const (
	// DefaultZero scores an unanswered question as 0. Incomplete
	// submissions therefore under-score instead of failing.
	DefaultZero MissingAnswerPolicy = "default_zero"
	// Reject fails scoring when any canonical question is unanswered.
	Reject MissingAnswerPolicy = "reject"
)

func ParseMissingAnswerPolicy(s string) (MissingAnswerPolicy, error) {
	switch p := MissingAnswerPolicy(s); p {
	case DefaultZero, Reject:
		return p, nil
	case "":
		return DefaultZero, nil
	}
	return "", fmt.Errorf("unknown missing answer policy %q", s)
}

// ParseAnswers partitions raw form values by instrument prefix and coerces
// them to ordinals. Keys without a known prefix are ignored. Unknown question
// ids and values outside [0,3] are validation errors.
func ParseAnswers(raw map[string]string) (AnswerSet, error) {
	set := make(AnswerSet)
	known := make(map[string]bool)
	for _, inst := range Instruments {
		for _, id := range inst.QuestionIDs() {
			known[inst.Key(id)] = true
		}
	}

	for key, val := range raw {
		if !hasInstrumentPrefix(key) {
			continue
		}
		if !known[key] {
			return nil, apperr.Validation(key, fmt.Sprintf("unknown question %q", key))
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || n < 0 || n > MaxOptionValue {
			return nil, apperr.Validation(key, fmt.Sprintf("answer to %s must be an integer between 0 and %d", key, MaxOptionValue))
		}
		set[key] = n
	}
	return set, nil
}

func hasInstrumentPrefix(key string) bool {
	for _, inst := range Instruments {
		if strings.HasPrefix(key, string(inst)+"_") {
			return true
		}
	}
	return false
}

// Partition returns the answers that belong to inst.
func (a AnswerSet) Partition(inst Instrument) map[string]int {
	out := make(map[string]int)
	prefix := string(inst) + "_"
	for k, v := range a {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// Missing lists the canonical keys of inst absent from a, in question order.
func (a AnswerSet) Missing(inst Instrument) []string {
	var missing []string
	for _, id := range inst.QuestionIDs() {
		if _, ok := a[inst.Key(id)]; !ok {
			missing = append(missing, inst.Key(id))
		}
	}
	return missing
}

// Score sums the canonical questions of inst. Only canonical keys contribute,
// so the result is always within [0, inst.MaxScore()] for in-range values.
func Score(a AnswerSet, inst Instrument, policy MissingAnswerPolicy) (int, error) {
	if !inst.Valid() {
		return 0, apperr.Validation("instrument", fmt.Sprintf("unknown instrument %q", inst))
	}
	if policy == Reject {
		if missing := a.Missing(inst); len(missing) > 0 {
			return 0, apperr.Validation(missing[0], fmt.Sprintf("%d %s question(s) unanswered", len(missing), bank[inst].Title))
		}
	}

	total := 0
	for _, id := range inst.QuestionIDs() {
		v := a[inst.Key(id)]
		if v < 0 || v > MaxOptionValue {
			return 0, apperr.Validation(inst.Key(id), fmt.Sprintf("answer to %s out of range", inst.Key(id)))
		}
		total += v
	}
	if total > inst.MaxScore() {
		return 0, apperr.Validation(string(inst), "score out of range")
	}
	return total, nil
}
