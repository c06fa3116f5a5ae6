package assessment

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/mindful/mindful/internal/domain/auditlog"
	"github.com/mindful/mindful/internal/domain/screening"
	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/db"
	"github.com/mindful/mindful/internal/platform/notification"
)

const (
	msgInvalidSubmission  = "Invalid data submitted. Please complete the assessment."
	msgAssessmentNotFound = "Assessment not found."
	msgPatientNotFound    = "Patient not found."
)

// Notifier creates an in-app notification for a doctor.
type Notifier interface {
	Notify(ctx context.Context, doctorID, patientID, message string) error
}

// Auditor appends one audit entry per call.
type Auditor interface {
	Record(ctx context.Context, ev auditlog.Event) (*auditlog.Entry, error)
}

// Mailer delivers templated email without reporting failures.
type Mailer interface {
	Deliver(ctx context.Context, templateID, to string, data map[string]string)
}

type Service struct {
	assessments Repository
	users       user.Repository
	notifier    Notifier
	audit       Auditor
	mail        Mailer
	tx          db.Runner
	policy      screening.MissingAnswerPolicy
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(assessments Repository, users user.Repository, notifier Notifier, audit Auditor, mail Mailer) *Service {
	return &Service{
		assessments: assessments,
		users:       users,
		notifier:    notifier,
		audit:       audit,
		mail:        mail,
		tx:          db.NoTx{},
		policy:      screening.DefaultZero,
		logger:      zerolog.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetRunner makes assessment creation and the profile update share one unit
// of work.
func (s *Service) SetRunner(r db.Runner) {
	s.tx = r
}

func (s *Service) SetPolicy(p screening.MissingAnswerPolicy) {
	s.policy = p
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// Submit scores a patient's answers and records the assessment. The doctor is
// taken from the patient's profile at submission time.
//
// Without a Runner the assessment write and the profile update commit
// separately; a failure after the assessment is written leaves it in place.
// Notification and audit failures after both writes are reported as
// dependency errors and are not rolled back.
func (s *Service) Submit(ctx context.Context, patientID string, raw map[string]string, additionalContext string) (*Result, error) {
	answers, err := screening.ParseAnswers(raw)
	if err != nil {
		return nil, err
	}
	phq9, err := screening.Score(answers, screening.PHQ9, s.policy)
	if err != nil {
		return nil, err
	}
	gad7, err := screening.Score(answers, screening.GAD7, s.policy)
	if err != nil {
		return nil, err
	}
	if phq9 < 0 || phq9 > screening.PHQ9.MaxScore() || gad7 < 0 || gad7 > screening.GAD7.MaxScore() {
		return nil, apperr.Validation("", msgInvalidSubmission)
	}
	if utf8.RuneCountInString(additionalContext) > MaxContextLength {
		return nil, apperr.Validation("additionalContext",
			fmt.Sprintf("Context cannot exceed %d characters.", MaxContextLength))
	}

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, apperr.Lift(err, "load patient", msgPatientNotFound)
	}
	if patient.Role != auth.RolePatient {
		return nil, apperr.Forbidden("only patients can submit assessments")
	}

	resources := screening.SelectResources(phq9, gad7)
	now := s.now()
	a := &Assessment{
		ID:                uuid.NewString(),
		UserID:            patientID,
		DoctorID:          patient.DoctorID,
		PHQ9Score:         phq9,
		GAD7Score:         gad7,
		Answers:           Answers{PHQ9: answers.Partition(screening.PHQ9), GAD7: answers.Partition(screening.GAD7)},
		AdditionalContext: additionalContext,
		Reviewed:          false,
		Recommendations:   resources,
		CreatedAt:         now,
	}

	completed := user.StatusCompleted
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.assessments.Create(ctx, a); err != nil {
			return apperr.Dependency("persist assessment", err)
		}
		err := s.users.Update(ctx, patientID, user.Patch{
			LastAssessmentAt: &now,
			LastPhq9Score:    &phq9,
			LastGad7Score:    &gad7,
			AssessmentStatus: &completed,
		})
		if err != nil {
			return apperr.Dependency("update patient profile", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("patient_id", patientID).Str("assessment_id", a.ID).
			Msg("assessment submission failed")
		return nil, err
	}

	if patient.DoctorID != "" {
		if err := s.notifyDoctor(ctx, patient, a); err != nil {
			return nil, err
		}
	}

	return &Result{
		AssessmentID:   a.ID,
		PHQ9Score:      phq9,
		GAD7Score:      gad7,
		PHQ9Severity:   screening.Classify(phq9, screening.PHQ9),
		GAD7Severity:   screening.Classify(gad7, screening.GAD7),
		RequiresReview: screening.RequiresReview(phq9, gad7),
		Resources:      resources,
	}, nil
}

func (s *Service) notifyDoctor(ctx context.Context, patient *user.User, a *Assessment) error {
	if err := s.notifier.Notify(ctx, patient.DoctorID, patient.ID, CompletionMessage(patient.DisplayName(), a)); err != nil {
		s.logger.Error().Err(err).Str("assessment_id", a.ID).Str("doctor_id", patient.DoctorID).
			Msg("doctor notification failed after assessment was stored")
		return apperr.Dependency("notify doctor", err)
	}

	_, err := s.audit.Record(ctx, auditlog.Event{
		ActorID:    patient.ID,
		Action:     auditlog.ActionAssessmentCompleted,
		TargetType: auditlog.TargetUser,
		TargetID:   patient.ID,
		Details: map[string]interface{}{
			"phq9Score":    a.PHQ9Score,
			"gad7Score":    a.GAD7Score,
			"assessmentId": a.ID,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("assessment_id", a.ID).Msg("audit write failed after assessment was stored")
		return apperr.Dependency("record audit entry", err)
	}
	return nil
}

// CompletionMessage is the doctor-facing notification text.
func CompletionMessage(patientName string, a *Assessment) string {
	if a.RequiresReview() {
		return fmt.Sprintf("%s has completed an assessment that requires your review.", patientName)
	}
	return fmt.Sprintf("%s has completed their assessment.", patientName)
}

// AddOrUpdateNote saves the assigned doctor's note and marks the assessment
// reviewed. An empty note is allowed and still marks it reviewed.
func (s *Service) AddOrUpdateNote(ctx context.Context, doctorID, assessmentID, note string) (*Assessment, error) {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return nil, apperr.Validation("note", fmt.Sprintf("Note cannot exceed %d characters.", MaxNoteLength))
	}

	a, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, apperr.Lift(err, "load assessment", msgAssessmentNotFound)
	}
	if a.DoctorID == "" || a.DoctorID != doctorID {
		return nil, apperr.Forbidden("only the assigned doctor can review this assessment")
	}

	if err := s.assessments.SetReview(ctx, assessmentID, note); err != nil {
		return nil, apperr.Lift(err, "save doctor note", msgAssessmentNotFound)
	}
	a.DoctorNote = note
	a.Reviewed = true

	_, err = s.audit.Record(ctx, auditlog.Event{
		ActorID:    a.DoctorID,
		Action:     auditlog.ActionAddDoctorNote,
		TargetType: auditlog.TargetAssessment,
		TargetID:   assessmentID,
		Details: map[string]interface{}{
			"note":      note,
			"patientId": a.UserID,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("assessment_id", assessmentID).Msg("audit write failed after note was saved")
		return nil, apperr.Dependency("record audit entry", err)
	}
	return a, nil
}

// Get returns an assessment to its patient, its assigned doctor or an admin.
// Orphaned assessments of deleted patients stay readable by id.
func (s *Service) Get(ctx context.Context, viewer auth.Principal, id string) (*Assessment, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Lift(err, "load assessment", msgAssessmentNotFound)
	}
	switch {
	case viewer.Role.Satisfies(auth.RoleAdmin):
	case viewer.Role == auth.RolePatient && a.UserID == viewer.ID:
	case viewer.Role == auth.RoleDoctor && a.DoctorID == viewer.ID:
	default:
		return nil, apperr.NotFound(msgAssessmentNotFound)
	}
	return a, nil
}

// ListForPatient returns a patient's history, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]*Assessment, error) {
	items, err := s.assessments.ListByUser(ctx, patientID)
	if err != nil {
		return nil, apperr.Dependency("list assessments", err)
	}
	return items, nil
}

// EmailResults sends a result summary to the patient who owns the assessment.
func (s *Service) EmailResults(ctx context.Context, patientID, assessmentID string) error {
	a, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return apperr.Lift(err, "load assessment", msgAssessmentNotFound)
	}
	if a.UserID != patientID {
		return apperr.Forbidden("you can only email your own results")
	}
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return apperr.Lift(err, "load patient", "User not found.")
	}

	s.mail.Deliver(ctx, notification.TemplateAssessmentResults, patient.Email, map[string]string{
		"name":          patient.DisplayName(),
		"date":          a.CreatedAt.Format("January 2, 2006"),
		"phq9_score":    strconv.Itoa(a.PHQ9Score),
		"phq9_severity": a.PHQ9Severity().String(),
		"gad7_score":    strconv.Itoa(a.GAD7Score),
		"gad7_severity": a.GAD7Severity().String(),
	})

	_, err = s.audit.Record(ctx, auditlog.Event{
		ActorID:    patientID,
		Action:     auditlog.ActionEmailResultsToSelf,
		TargetType: auditlog.TargetUser,
		TargetID:   patientID,
		Details: map[string]interface{}{
			"assessmentId": assessmentID,
			"sentTo":       patient.Email,
		},
	})
	if err != nil {
		return apperr.Dependency("record audit entry", err)
	}
	return nil
}

// ReviewQueue lists a doctor's unreviewed assessments with patient names
// resolved in one batched lookup.
func (s *Service) ReviewQueue(ctx context.Context, doctorID string, limit int) ([]QueueItem, error) {
	pending, err := s.assessments.ListPendingReview(ctx, doctorID, limit)
	if err != nil {
		return nil, apperr.Dependency("list pending review", err)
	}
	if len(pending) == 0 {
		return []QueueItem{}, nil
	}

	ids := lo.Uniq(lo.Map(pending, func(a *Assessment, _ int) string { return a.UserID }))
	patients, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Dependency("resolve patient names", err)
	}
	byID := lo.KeyBy(patients, func(u *user.User) string { return u.ID })

	return lo.Map(pending, func(a *Assessment, _ int) QueueItem {
		item := QueueItem{Assessment: a, PatientName: "Unknown Patient"}
		if p, ok := byID[a.UserID]; ok {
			item.PatientName = p.DisplayName()
			item.PatientEmail = p.Email
		}
		return item
	}), nil
}

func (s *Service) CountPendingReview(ctx context.Context, doctorID string) (int, error) {
	n, err := s.assessments.CountPendingReview(ctx, doctorID)
	if err != nil {
		return 0, apperr.Dependency("count pending review", err)
	}
	return n, nil
}
