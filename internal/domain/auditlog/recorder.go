package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EmailResolver maps an actor id to an email address.
type EmailResolver interface {
	Email(ctx context.Context, id string) (string, error)
}

// Recorder appends entries, attributing each one to the actor's email.
type Recorder struct {
	repo   Repository
	emails EmailResolver
	logger zerolog.Logger
}

func NewRecorder(repo Repository, emails EmailResolver) *Recorder {
	return &Recorder{repo: repo, emails: emails, logger: zerolog.Nop()}
}

func (r *Recorder) SetLogger(l zerolog.Logger) {
	r.logger = l
}

// Record writes exactly one entry for ev. A failed email lookup does not
// block the write; the entry is attributed to EmailUnknown instead.
// Entries always carry a details object, empty when ev has none.
func (r *Recorder) Record(ctx context.Context, ev Event) (*Entry, error) {
	if ev.Details == nil {
		ev.Details = map[string]interface{}{}
	}
	e := &Entry{
		ID:         uuid.NewString(),
		ActorID:    ev.ActorID,
		ActorEmail: r.actorEmail(ctx, ev.ActorID),
		Action:     ev.Action,
		TargetType: ev.TargetType,
		TargetID:   ev.TargetID,
		Details:    ev.Details,
		Timestamp:  time.Now().UTC(),
	}
	if err := r.repo.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Recorder) actorEmail(ctx context.Context, actorID string) string {
	email, err := r.emails.Email(ctx, actorID)
	if err != nil {
		r.logger.Warn().Err(err).Str("actor_id", actorID).Msg("audit actor lookup failed")
		return EmailUnknown
	}
	if email == "" {
		return EmailUnavailable
	}
	return email
}
