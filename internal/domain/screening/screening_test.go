package screening

import (
	"fmt"
	"testing"

	"github.com/mindful/mindful/internal/platform/apperr"
)

func fill(inst Instrument, v int) map[string]string {
	raw := make(map[string]string)
	for _, id := range inst.QuestionIDs() {
		raw[inst.Key(id)] = fmt.Sprint(v)
	}
	return raw
}

func TestBank(t *testing.T) {
	b := Bank()
	if len(b) != 2 {
		t.Fatalf("expected 2 questionnaires, got %d", len(b))
	}
	if len(b[0].Questions) != 9 || b[0].MaxScore != 27 {
		t.Errorf("unexpected PHQ-9 shape: %d questions, max %d", len(b[0].Questions), b[0].MaxScore)
	}
	if len(b[1].Questions) != 7 || b[1].MaxScore != 21 {
		t.Errorf("unexpected GAD-7 shape: %d questions, max %d", len(b[1].Questions), b[1].MaxScore)
	}
	if b[0].Questions[8].ID != "q9" || len(b[0].Questions[8].Options) != 4 {
		t.Errorf("unexpected last PHQ-9 question %+v", b[0].Questions[8])
	}
	if PHQ9.Key("q1") != "phq9_q1" {
		t.Errorf("unexpected key %q", PHQ9.Key("q1"))
	}
}

func TestParseAnswers(t *testing.T) {
	raw := fill(PHQ9, 2)
	raw["gad7_q1"] = "3"
	raw["userId"] = "ignored"

	set, err := ParseAnswers(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Partition(PHQ9)) != 9 || len(set.Partition(GAD7)) != 1 {
		t.Errorf("unexpected partition sizes %d/%d", len(set.Partition(PHQ9)), len(set.Partition(GAD7)))
	}
	if _, ok := set["userId"]; ok {
		t.Error("non-instrument key should be ignored")
	}
}

func TestParseAnswers_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"non integer":      {"phq9_q1": "often"},
		"above scale":      {"phq9_q1": "4"},
		"negative":         {"gad7_q2": "-1"},
		"unknown question": {"phq9_q10": "1"},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAnswers(raw); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestScore_RangeAndPolicy(t *testing.T) {
	for v := 0; v <= MaxOptionValue; v++ {
		raw := fill(PHQ9, v)
		for k, val := range fill(GAD7, v) {
			raw[k] = val
		}
		set, _ := ParseAnswers(raw)
		phq, err := Score(set, PHQ9, Reject)
		if err != nil || phq != 9*v {
			t.Errorf("PHQ-9 all %d: got %d, %v", v, phq, err)
		}
		gad, err := Score(set, GAD7, Reject)
		if err != nil || gad != 7*v {
			t.Errorf("GAD-7 all %d: got %d, %v", v, gad, err)
		}
		if phq < 0 || phq > 27 || gad < 0 || gad > 21 {
			t.Errorf("score out of range: %d/%d", phq, gad)
		}
	}
}

func TestScore_MissingAnswers(t *testing.T) {
	set := AnswerSet{"phq9_q1": 3, "phq9_q2": 3}

	got, err := Score(set, PHQ9, DefaultZero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Errorf("expected partial set to under-score to 6, got %d", got)
	}

	_, err = Score(set, PHQ9, Reject)
	if !apperr.IsValidation(err) {
		t.Errorf("expected reject policy to fail, got %v", err)
	}
}

func TestScore_IgnoresForeignKeys(t *testing.T) {
	set := AnswerSet{"gad7_q1": 3, "phq9_q1": 1}
	got, _ := Score(set, PHQ9, DefaultZero)
	if got != 1 {
		t.Errorf("expected only phq9 keys counted, got %d", got)
	}
}

func TestParseMissingAnswerPolicy(t *testing.T) {
	if p, _ := ParseMissingAnswerPolicy(""); p != DefaultZero {
		t.Errorf("expected default, got %q", p)
	}
	if p, _ := ParseMissingAnswerPolicy("reject"); p != Reject {
		t.Errorf("expected reject, got %q", p)
	}
	if _, err := ParseMissingAnswerPolicy("lenient"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		inst  Instrument
		want  Severity
	}{
		{0, PHQ9, Minimal},
		{4, PHQ9, Minimal},
		{5, PHQ9, Mild},
		{9, PHQ9, Mild},
		{10, PHQ9, Moderate},
		{14, PHQ9, Moderate},
		{15, PHQ9, ModeratelySevere},
		{19, PHQ9, ModeratelySevere},
		{20, PHQ9, Severe},
		{27, PHQ9, Severe},
		{4, GAD7, Minimal},
		{5, GAD7, Mild},
		{10, GAD7, Moderate},
		{14, GAD7, Moderate},
		{15, GAD7, Severe},
		{21, GAD7, Severe},
	}
	for _, tt := range tests {
		if got := Classify(tt.score, tt.inst); got != tt.want {
			t.Errorf("Classify(%d, %s) = %s, want %s", tt.score, tt.inst, got, tt.want)
		}
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for _, inst := range Instruments {
		prev := Classify(0, inst)
		for s := 1; s <= inst.MaxScore(); s++ {
			cur := Classify(s, inst)
			if cur < prev {
				t.Fatalf("%s: severity decreased from %s to %s at %d", inst, prev, cur, s)
			}
			prev = cur
		}
	}
}

func TestSeverity_String(t *testing.T) {
	if ModeratelySevere.String() != "Moderately Severe" {
		t.Errorf("unexpected label %q", ModeratelySevere.String())
	}
	b, _ := Severe.MarshalText()
	if string(b) != "Severe" {
		t.Errorf("unexpected text %q", b)
	}
}

func categories(rs []Resource) map[Category]int {
	out := make(map[Category]int)
	for _, r := range rs {
		out[r.Category]++
	}
	return out
}

func TestSelectResources(t *testing.T) {
	tests := []struct {
		phq9, gad7 int
		want       map[Category]int
	}{
		{25, 0, map[Category]int{CategoryCrisis: 2, CategoryTherapy: 2}},
		{12, 0, map[Category]int{CategoryCoping: 3, CategoryTherapy: 2}},
		{0, 0, map[Category]int{CategoryTherapy: 2}},
		{0, 15, map[Category]int{CategoryCrisis: 2, CategoryTherapy: 2}},
		{0, 14, map[Category]int{CategoryCoping: 3, CategoryTherapy: 2}},
		{22, 12, map[Category]int{CategoryCrisis: 2, CategoryCoping: 3, CategoryTherapy: 2}},
		{18, 9, map[Category]int{CategoryCoping: 3, CategoryTherapy: 2}},
	}
	for _, tt := range tests {
		got := categories(SelectResources(tt.phq9, tt.gad7))
		if len(got) != len(tt.want) {
			t.Errorf("SelectResources(%d, %d) = %v, want %v", tt.phq9, tt.gad7, got, tt.want)
			continue
		}
		for c, n := range tt.want {
			if got[c] != n {
				t.Errorf("SelectResources(%d, %d)[%s] = %d, want %d", tt.phq9, tt.gad7, c, got[c], n)
			}
		}
	}
}

func TestSelectResources_TherapyLast(t *testing.T) {
	rs := SelectResources(25, 12)
	if rs[0].Category != CategoryCrisis || rs[len(rs)-1].Category != CategoryTherapy {
		t.Errorf("unexpected order: first %s, last %s", rs[0].Category, rs[len(rs)-1].Category)
	}
}

func TestRequiresReview(t *testing.T) {
	if !RequiresReview(15, 0) || !RequiresReview(0, 15) {
		t.Error("expected 15 on either instrument to require review")
	}
	if RequiresReview(14, 14) {
		t.Error("expected 14/14 not to require review")
	}
}
