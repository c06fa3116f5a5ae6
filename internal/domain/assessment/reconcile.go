package assessment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
)

const reconcilePageSize = 100

// Report summarizes a reconciliation run.
type Report struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
}

// Reconciler repairs patient profiles whose denormalized scores drifted from
// their latest assessment, e.g. after a crash between the two writes of a
// submission. Running it twice repairs nothing the second time.
type Reconciler struct {
	assessments Repository
	users       user.Repository
	logger      zerolog.Logger
}

func NewReconciler(assessments Repository, users user.Repository, logger zerolog.Logger) *Reconciler {
	return &Reconciler{assessments: assessments, users: users, logger: logger}
}

func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var rep Report
	for offset := 0; ; offset += reconcilePageSize {
		patients, total, err := r.users.ListByRole(ctx, auth.RolePatient, reconcilePageSize, offset)
		if err != nil {
			return rep, err
		}
		for _, p := range patients {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			rep.Checked++
			repaired, err := r.reconcile(ctx, p)
			if err != nil {
				return rep, err
			}
			if repaired {
				rep.Repaired++
			}
		}
		if len(patients) == 0 || offset+len(patients) >= total {
			break
		}
	}
	r.logger.Info().Int("checked", rep.Checked).Int("repaired", rep.Repaired).Msg("reconciliation finished")
	return rep, nil
}

func (r *Reconciler) reconcile(ctx context.Context, p *user.User) (bool, error) {
	latest, err := r.assessments.LatestByUser(ctx, p.ID)
	if apperr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	patch := Drift(p, latest)
	if patch.Empty() {
		return false, nil
	}
	if err := r.users.Update(ctx, p.ID, patch); err != nil {
		return false, err
	}
	r.logger.Warn().Str("patient_id", p.ID).Str("assessment_id", latest.ID).Msg("repaired denormalized assessment fields")
	return true, nil
}

// Drift returns the patch that brings p in line with latest. A pending
// status is only completed when the assessment was sent before latest was
// submitted.
func Drift(p *user.User, latest *Assessment) user.Patch {
	var patch user.Patch
	if p.LastPhq9Score == nil || *p.LastPhq9Score != latest.PHQ9Score {
		patch.LastPhq9Score = user.Ptr(latest.PHQ9Score)
	}
	if p.LastGad7Score == nil || *p.LastGad7Score != latest.GAD7Score {
		patch.LastGad7Score = user.Ptr(latest.GAD7Score)
	}
	if p.LastAssessmentAt == nil || !sameInstant(*p.LastAssessmentAt, latest.CreatedAt) {
		patch.LastAssessmentAt = user.Ptr(latest.CreatedAt)
	}
	stale := p.AssessmentStatus == user.StatusPending &&
		(p.AssessmentSentAt == nil || !p.AssessmentSentAt.After(latest.CreatedAt))
	if stale || p.AssessmentStatus == user.StatusIdle || p.AssessmentStatus == "" {
		patch.AssessmentStatus = user.Ptr(user.StatusCompleted)
	}
	return patch
}

// Stores keep different timestamp precision.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}
