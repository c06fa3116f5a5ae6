// Package screening holds the PHQ-9 and GAD-7 instruments and the pure scoring
// and recommendation rules applied to them.
package screening

import "fmt"

// Instrument identifies a questionnaire. Its value is the answer key prefix.
type Instrument string

const (
	PHQ9 Instrument = "phq9"
	GAD7 Instrument = "gad7"
)

// Instruments lists every instrument in display order.
var Instruments = []Instrument{PHQ9, GAD7}

type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Questionnaire is the wire form of one instrument.
type Questionnaire struct {
	Instrument Instrument `json:"instrument"`
	Title      string     `json:"title"`
	Questions  []Question `json:"questions"`
	MaxScore   int        `json:"maxScore"`
}

// MaxOptionValue is the highest ordinal on the response scale.
const MaxOptionValue = 3

var options = []Option{
	{Label: "Not at all", Value: 0},
	{Label: "Several days", Value: 1},
	{Label: "More than half the days", Value: 2},
	{Label: "Nearly every day", Value: 3},
}

func questions(texts ...string) []Question {
	out := make([]Question, len(texts))
	for i, t := range texts {
		out[i] = Question{ID: fmt.Sprintf("q%d", i+1), Text: t, Options: options}
	}
	return out
}

var bank = map[Instrument]Questionnaire{
	PHQ9: {
		Instrument: PHQ9,
		Title:      "PHQ-9",
		Questions: questions(
			"Little interest or pleasure in doing things",
			"Feeling down, depressed, or hopeless",
			"Trouble falling or staying asleep, or sleeping too much",
			"Feeling tired or having little energy",
			"Poor appetite or overeating",
			"Feeling bad about yourself - or that you are a failure or have let yourself or your family down",
			"Trouble concentrating on things, such as reading the newspaper or watching television",
			"Moving or speaking so slowly that other people could have noticed. Or the opposite - being so fidgety or restless that you have been moving around a lot more than usual",
			"Thoughts that you would be better off dead, or of hurting yourself in some way",
		),
	},
	GAD7: {
		Instrument: GAD7,
		Title:      "GAD-7",
		Questions: questions(
			"Feeling nervous, anxious, or on edge",
			"Not being able to stop or control worrying",
			"Worrying too much about different things",
			"Trouble relaxing",
			"Being so restless that it is hard to sit still",
			"Becoming easily annoyed or irritable",
			"Feeling afraid as if something awful might happen",
		),
	},
}

func init() {
	for k, q := range bank {
		q.MaxScore = len(q.Questions) * MaxOptionValue
		bank[k] = q
	}
}

// Bank returns both questionnaires in display order.
func Bank() []Questionnaire {
	out := make([]Questionnaire, 0, len(Instruments))
	for _, inst := range Instruments {
		out = append(out, bank[inst])
	}
	return out
}

// QuestionIDs returns the canonical question ids of inst.
func (inst Instrument) QuestionIDs() []string {
	qs := bank[inst].Questions
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

// MaxScore is the highest attainable total for inst.
func (inst Instrument) MaxScore() int { return bank[inst].MaxScore }

// Key builds the answer key for a question, e.g. "phq9_q3".
func (inst Instrument) Key(questionID string) string {
	return string(inst) + "_" + questionID
}

func (inst Instrument) Valid() bool {
	_, ok := bank[inst]
	return ok
}
