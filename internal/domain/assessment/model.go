package assessment

import (
	"time"

	"github.com/mindful/mindful/internal/domain/screening"
)

// Limits on free-text fields.
const (
	MaxContextLength = 500
	MaxNoteLength    = 1000
)

// Answers is the submitted answer set split by instrument.
type Answers struct {
	PHQ9 map[string]int `json:"phq9" bson:"phq9"`
	GAD7 map[string]int `json:"gad7" bson:"gad7"`
}

// Assessment is one submitted PHQ-9/GAD-7 screening.
type Assessment struct {
	ID                string  `json:"id" bson:"_id"`
	UserID            string  `json:"userId" bson:"userId"`
	DoctorID          string  `json:"doctorId,omitempty" bson:"doctorId,omitempty"`
	PHQ9Score         int     `json:"phq9Score" bson:"phq9Score"`
	GAD7Score         int     `json:"gad7Score" bson:"gad7Score"`
	Answers           Answers `json:"answers" bson:"answers"`
	AdditionalContext string  `json:"additionalContext,omitempty" bson:"additionalContext,omitempty"`
	DoctorNote        string  `json:"doctorNote,omitempty" bson:"doctorNote,omitempty"`

	// Reviewed is stored as recommendationGenerated for compatibility with
	// existing documents. It means a doctor has saved a note, and is false
	// right after submission.
	Reviewed        bool                 `json:"recommendationGenerated" bson:"recommendationGenerated"`
	Recommendations []screening.Resource `json:"recommendations" bson:"recommendations"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
}

// PHQ9Severity and GAD7Severity classify the stored totals.
func (a *Assessment) PHQ9Severity() screening.Severity {
	return screening.Classify(a.PHQ9Score, screening.PHQ9)
}

func (a *Assessment) GAD7Severity() screening.Severity {
	return screening.Classify(a.GAD7Score, screening.GAD7)
}

func (a *Assessment) RequiresReview() bool {
	return screening.RequiresReview(a.PHQ9Score, a.GAD7Score)
}

// Result is returned to the patient right after submission. Resources are the
// values selected during the submission, not re-read from storage.
type Result struct {
	AssessmentID   string               `json:"assessmentId"`
	PHQ9Score      int                  `json:"phq9Score"`
	GAD7Score      int                  `json:"gad7Score"`
	PHQ9Severity   screening.Severity   `json:"phq9Severity"`
	GAD7Severity   screening.Severity   `json:"gad7Severity"`
	RequiresReview bool                 `json:"requiresReview"`
	Resources      []screening.Resource `json:"resources"`
}

// QueueItem is an assessment awaiting review with its patient's name.
type QueueItem struct {
	*Assessment
	PatientName  string `json:"patientName"`
	PatientEmail string `json:"patientEmail,omitempty"`
}
