// Package patient runs the patient lifecycle: registration by a doctor,
// self-service linking, assessment invitations, profile maintenance and
// deletion. Every clinically reviewable step is written to the audit log.
package patient

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/mindful/mindful/internal/domain/assessment"
	"github.com/mindful/mindful/internal/domain/auditlog"
	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/identity"
	"github.com/mindful/mindful/internal/platform/notification"
)

const (
	msgPatientNotFound = "Patient not found."
	msgHistoryNotFound = "Patient not found or you do not have permission to view this profile."
	msgNotAPatient     = "A user with this email already exists but is not a patient."
	msgOtherDoctor     = "This patient is already linked to a different doctor."
	msgDoctorNotFound  = "No doctor found with that email address."
	msgNoDoctorLinked  = "You are not linked to a doctor yet."
	msgUserNotFound    = "User not found."
	msgHIPAAConsent    = "You must consent to the HIPAA policy."
	msgProfileExists   = "A profile already exists for this account."
	sourceKiosk        = "kiosk"
	dateOfBirthLayout  = "2006-01-02"
)

// Assessments is the slice of the assessment workflow the lifecycle reads.
type Assessments interface {
	ListForPatient(ctx context.Context, patientID string) ([]*assessment.Assessment, error)
	CountPendingReview(ctx context.Context, doctorID string) (int, error)
}

type Service struct {
	users       user.Repository
	identities  identity.Provider
	assessments Assessments
	audit       assessment.Auditor
	mail        assessment.Mailer
	superAdmins map[string]bool
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(users user.Repository, identities identity.Provider, assessments Assessments, audit assessment.Auditor, mail assessment.Mailer) *Service {
	return &Service{
		users:       users,
		identities:  identities,
		assessments: assessments,
		audit:       audit,
		mail:        mail,
		superAdmins: map[string]bool{},
		logger:      zerolog.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// SetSuperAdminEmails lists the addresses promoted to super_admin when their
// profile is created.
func (s *Service) SetSuperAdminEmails(emails []string) {
	s.superAdmins = lo.SliceToMap(emails, func(e string) (string, bool) {
		return user.NormalizeEmail(e), true
	})
}

func (s *Service) roleFor(email string, requested auth.Role) auth.Role {
	if s.superAdmins[user.NormalizeEmail(email)] {
		return auth.RoleSuperAdmin
	}
	return requested
}

// NewPatient is a doctor's registration form.
type NewPatient struct {
	Email                 string
	FirstName             string
	LastName              string
	DateOfBirth           string
	Phone                 string
	EmergencyContactName  string
	EmergencyContactPhone string
	Source                string
}

// CreateResult reports whether an existing patient was linked or a new
// account was opened. TemporaryPassword is set only for new accounts.
type CreateResult struct {
	Patient           *user.User `json:"patient"`
	Linked            bool       `json:"linked"`
	TemporaryPassword string     `json:"temporaryPassword,omitempty"`
	Message           string     `json:"message"`
}

// CreateByDoctor registers a patient under doctorID, or links an existing
// unlinked patient with the same email. Either way the patient ends up
// pending with an assessment invitation sent.
func (s *Service) CreateByDoctor(ctx context.Context, doctorID string, in NewPatient) (*CreateResult, error) {
	in.Email = user.NormalizeEmail(in.Email)
	if in.Email == "" {
		return nil, apperr.Validation("patientEmail", "patientEmail is required")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, apperr.Validation("firstName", "First and last name are required.")
	}
	if err := checkDateOfBirth(in.DateOfBirth); err != nil {
		return nil, err
	}

	now := s.now()
	pending := user.StatusPending
	profileComplete := in.Source == sourceKiosk

	existing, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.Role != auth.RolePatient {
			return nil, apperr.Conflict(msgNotAPatient)
		}
		if existing.DoctorID != "" && existing.DoctorID != doctorID {
			return nil, apperr.Conflict(msgOtherDoctor)
		}
		patch := user.Patch{
			FirstName:             &in.FirstName,
			LastName:              &in.LastName,
			Phone:                 &in.Phone,
			DateOfBirth:           &in.DateOfBirth,
			EmergencyContactName:  &in.EmergencyContactName,
			EmergencyContactPhone: &in.EmergencyContactPhone,
			ProfileComplete:       &profileComplete,
			DoctorID:              &doctorID,
			AssessmentStatus:      &pending,
			AssessmentSentAt:      &now,
		}
		if err := s.users.Update(ctx, existing.ID, patch); err != nil {
			return nil, apperr.Lift(err, "link patient", msgPatientNotFound)
		}
		patch.Apply(existing)
		s.mail.Deliver(ctx, notification.TemplateAssessmentSent, existing.Email, nil)
		return &CreateResult{
			Patient: existing,
			Linked:  true,
			Message: "Existing patient linked successfully. An assessment has been sent.",
		}, nil
	case !apperr.IsNotFound(err):
		return nil, apperr.Dependency("look up patient", err)
	}

	ident, password, err := s.identities.Create(ctx, in.Email, auth.RolePatient)
	if err != nil {
		if apperr.IsConflict(err) {
			return nil, apperr.Conflict(msgNotAPatient)
		}
		return nil, apperr.Lift(err, "create identity", msgUserNotFound)
	}

	p := &user.User{
		ID:                    ident.ID,
		Email:                 in.Email,
		Role:                  auth.RolePatient,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Phone:                 in.Phone,
		DateOfBirth:           in.DateOfBirth,
		EmergencyContactName:  in.EmergencyContactName,
		EmergencyContactPhone: in.EmergencyContactPhone,
		Source:                in.Source,
		ProfileComplete:       profileComplete,
		DoctorID:              doctorID,
		AssessmentStatus:      pending,
		AssessmentSentAt:      &now,
	}
	if err := s.users.Create(ctx, p); err != nil {
		// Without a profile the identity is unusable.
		if derr := s.identities.Delete(ctx, ident.ID); derr != nil {
			s.logger.Error().Err(derr).Str("identity_id", ident.ID).Msg("orphaned identity left after profile failure")
		}
		return nil, apperr.Dependency("create patient profile", err)
	}
	s.mail.Deliver(ctx, notification.TemplateAssessmentSent, p.Email, nil)

	return &CreateResult{
		Patient:           p,
		TemporaryPassword: password,
		Message:           "Patient created successfully. An assessment has been sent.",
	}, nil
}

// LinkDoctor attaches a patient to the doctor registered under doctorEmail
// and marks a new assessment as pending.
func (s *Service) LinkDoctor(ctx context.Context, patientID, doctorEmail string) (*DoctorProfile, error) {
	doctorEmail = user.NormalizeEmail(doctorEmail)
	if doctorEmail == "" {
		return nil, apperr.Validation("doctorEmail", "doctorEmail is required")
	}
	doctor, err := s.users.FindByEmailAndRole(ctx, doctorEmail, auth.RoleDoctor)
	if err != nil {
		return nil, apperr.Lift(err, "look up doctor", msgDoctorNotFound)
	}

	now := s.now()
	pending := user.StatusPending
	err = s.users.Update(ctx, patientID, user.Patch{
		DoctorID:         &doctor.ID,
		AssessmentStatus: &pending,
		AssessmentSentAt: &now,
	})
	if err != nil {
		return nil, apperr.Lift(err, "link doctor", msgUserNotFound)
	}
	return profileOf(doctor), nil
}

// linkedPatient loads a patient and checks it belongs to doctorID.
func (s *Service) linkedPatient(ctx context.Context, doctorID, patientID, missing string) (*user.User, error) {
	p, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, apperr.Lift(err, "load patient", missing)
	}
	if p.Role != auth.RolePatient || p.DoctorID != doctorID {
		return nil, apperr.NotFound(missing)
	}
	return p, nil
}

// SendAssessment opens a new assessment for the patient and emails them.
func (s *Service) SendAssessment(ctx context.Context, doctorID, patientID string) error {
	p, err := s.linkedPatient(ctx, doctorID, patientID, msgPatientNotFound)
	if err != nil {
		return err
	}

	now := s.now()
	pending := user.StatusPending
	if err := s.users.Update(ctx, p.ID, user.Patch{AssessmentStatus: &pending, AssessmentSentAt: &now}); err != nil {
		return apperr.Lift(err, "mark assessment pending", msgPatientNotFound)
	}

	if err := s.record(ctx, doctorID, auditlog.ActionSendAssessment, p.ID, map[string]interface{}{
		"patientEmail": p.Email,
	}); err != nil {
		return err
	}
	s.mail.Deliver(ctx, notification.TemplateAssessmentSent, p.Email, nil)
	return nil
}

// ResendInvite repeats the invitation email. The assessment status is left
// as it is: the patient may already be pending or completed.
func (s *Service) ResendInvite(ctx context.Context, doctorID, patientID string) error {
	p, err := s.linkedPatient(ctx, doctorID, patientID, msgPatientNotFound)
	if err != nil {
		return err
	}
	if err := s.record(ctx, doctorID, auditlog.ActionResendInvite, p.ID, map[string]interface{}{
		"patientEmail": p.Email,
	}); err != nil {
		return err
	}
	s.mail.Deliver(ctx, notification.TemplateAssessmentResend, p.Email, nil)
	return nil
}

// Delete removes a patient's profile and identity. Doctors may delete only
// their own patients. Assessments are kept.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, patientID string) error {
	p, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return apperr.Lift(err, "load patient", msgPatientNotFound)
	}
	if p.Role != auth.RolePatient {
		return apperr.NotFound(msgPatientNotFound)
	}
	if !actor.Role.Satisfies(auth.RoleAdmin) && p.DoctorID != actor.ID {
		return apperr.Forbidden("you can only delete your own patients")
	}

	if err := s.users.Delete(ctx, p.ID); err != nil {
		return apperr.Lift(err, "delete patient profile", msgPatientNotFound)
	}
	if err := s.identities.Delete(ctx, p.ID); err != nil && !apperr.IsNotFound(err) {
		s.logger.Error().Err(err).Str("patient_id", p.ID).Msg("identity delete failed after profile was removed")
		return apperr.Dependency("delete identity", err)
	}

	return s.record(ctx, actor.ID, auditlog.ActionDeletePatient, p.ID, map[string]interface{}{
		"deletedPatientEmail": p.Email,
		"deletedPatientName":  strings.TrimSpace(p.FirstName + " " + p.LastName),
	})
}

// History is a patient's profile with their assessments, newest first.
type History struct {
	Patient     *user.User               `json:"patient"`
	Assessments []*assessment.Assessment `json:"assessments"`
}

// ViewPatientHistory returns a linked patient's record to their doctor.
// The access is audited; an audit failure does not fail the read.
func (s *Service) ViewPatientHistory(ctx context.Context, doctorID, patientID string) (*History, error) {
	p, err := s.linkedPatient(ctx, doctorID, patientID, msgHistoryNotFound)
	if err != nil {
		return nil, err
	}
	items, err := s.assessments.ListForPatient(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*assessment.Assessment{}
	}

	if err := s.record(ctx, doctorID, auditlog.ActionViewPatientHistory, p.ID, nil); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", p.ID).Msg("history view was not audited")
	}
	return &History{Patient: p, Assessments: items}, nil
}

// ProfileUpdate is the self-service profile form.
type ProfileUpdate struct {
	FirstName             string
	LastName              string
	DateOfBirth           string
	Phone                 string
	EmergencyContactName  string
	EmergencyContactPhone string
	HIPAAConsent          bool
}

// Change is one field's before and after values.
type Change struct {
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// UpdateProfile saves the caller's profile, marks it complete and audits the
// fields that actually changed.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*user.User, error) {
	required := []struct{ field, value string }{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"phone", in.Phone},
		{"emergencyContactName", in.EmergencyContactName},
		{"emergencyContactPhone", in.EmergencyContactPhone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, apperr.Validation(r.field, r.field+" is required")
		}
	}
	if err := checkDateOfBirth(in.DateOfBirth); err != nil {
		return nil, err
	}
	if !in.HIPAAConsent {
		return nil, apperr.Validation("hipaaConsent", msgHIPAAConsent)
	}

	before, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Lift(err, "load profile", msgUserNotFound)
	}

	yes := true
	patch := user.Patch{
		FirstName:             &in.FirstName,
		LastName:              &in.LastName,
		Phone:                 &in.Phone,
		DateOfBirth:           &in.DateOfBirth,
		EmergencyContactName:  &in.EmergencyContactName,
		EmergencyContactPhone: &in.EmergencyContactPhone,
		HIPAAConsent:          &yes,
		ProfileComplete:       &yes,
	}
	if err := s.users.Update(ctx, userID, patch); err != nil {
		return nil, apperr.Lift(err, "update profile", msgUserNotFound)
	}

	after := *before
	patch.Apply(&after)
	changes := Diff(before, &after)
	if len(changes) > 0 {
		if err := s.record(ctx, userID, auditlog.ActionUpdateUserProfile, userID, map[string]interface{}{
			"changes": changes,
		}); err != nil {
			return nil, err
		}
	}
	return &after, nil
}

// Diff compares the self-editable profile fields.
func Diff(before, after *user.User) map[string]Change {
	type pair struct {
		key  string
		a, b interface{}
	}
	pairs := []pair{
		{"firstName", before.FirstName, after.FirstName},
		{"lastName", before.LastName, after.LastName},
		{"phone", before.Phone, after.Phone},
		{"emergencyContactName", before.EmergencyContactName, after.EmergencyContactName},
		{"emergencyContactPhone", before.EmergencyContactPhone, after.EmergencyContactPhone},
		{"hipaaConsent", before.HIPAAConsent, after.HIPAAConsent},
		{"profileComplete", before.ProfileComplete, after.ProfileComplete},
		{"dateOfBirth", before.DateOfBirth, after.DateOfBirth},
	}
	changes := make(map[string]Change)
	for _, p := range pairs {
		if p.a != p.b {
			changes[p.key] = Change{Before: p.a, After: p.b}
		}
	}
	return changes
}

// UpdateRole changes a user's role, first on the identity then on the
// profile.
func (s *Service) UpdateRole(ctx context.Context, actor auth.Principal, userID string, role auth.Role) error {
	if err := auth.Authorize(actor.Role, auth.RoleAdmin); err != nil {
		return err
	}
	if !role.Valid() {
		return apperr.Validation("role", "unknown role "+string(role))
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Lift(err, "load user", msgUserNotFound)
	}

	if err := s.identities.SetRole(ctx, userID, role); err != nil {
		return apperr.Lift(err, "set role claim", msgUserNotFound)
	}
	if err := s.users.Update(ctx, userID, user.Patch{Role: &role}); err != nil {
		return apperr.Lift(err, "update profile role", msgUserNotFound)
	}

	return s.record(ctx, actor.ID, auditlog.ActionUpdateUserRole, userID, map[string]interface{}{
		"from": string(u.Role),
		"to":   string(role),
	})
}

// Registration is the first-login form for a caller without a profile.
type Registration struct {
	Role      auth.Role
	FirstName string
	LastName  string
}

// Register creates the caller's own profile. Only patient and doctor may be
// requested; configured super-admin emails are promoted regardless.
func (s *Service) Register(ctx context.Context, p auth.Principal, in Registration) (*user.User, error) {
	if p.ID == "" || p.Email == "" {
		return nil, apperr.Validation("email", "an authenticated email is required")
	}
	if in.Role != auth.RolePatient && in.Role != auth.RoleDoctor {
		return nil, apperr.Validation("role", "role must be patient or doctor")
	}
	if _, err := s.users.GetByID(ctx, p.ID); err == nil {
		return nil, apperr.Conflict(msgProfileExists)
	} else if !apperr.IsNotFound(err) {
		return nil, apperr.Dependency("load profile", err)
	}

	role := s.roleFor(p.Email, in.Role)
	if err := s.identities.Ensure(ctx, p.ID, p.Email, role); err != nil {
		return nil, apperr.Lift(err, "register identity", msgUserNotFound)
	}
	if err := s.identities.SetRole(ctx, p.ID, role); err != nil {
		return nil, apperr.Lift(err, "set role claim", msgUserNotFound)
	}

	u := &user.User{
		ID:        p.ID,
		Email:     user.NormalizeEmail(p.Email),
		Role:      role,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if role == auth.RolePatient {
		u.AssessmentStatus = user.StatusIdle
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, apperr.Dependency("create profile", err)
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Lift(err, "load profile", msgUserNotFound)
	}
	return u, nil
}

// DoctorProfile is what a patient may see of their doctor.
type DoctorProfile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func profileOf(u *user.User) *DoctorProfile {
	return &DoctorProfile{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func (s *Service) MyDoctor(ctx context.Context, patientID string) (*DoctorProfile, error) {
	p, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, apperr.Lift(err, "load profile", msgUserNotFound)
	}
	if p.DoctorID == "" {
		return nil, apperr.NotFound(msgNoDoctorLinked)
	}
	d, err := s.users.GetByID(ctx, p.DoctorID)
	if err != nil {
		return nil, apperr.Lift(err, "load doctor", msgDoctorNotFound)
	}
	return profileOf(d), nil
}

func (s *Service) ListPatients(ctx context.Context, doctorID string, limit, offset int) ([]*user.User, int, error) {
	items, total, err := s.users.ListPatientsByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Dependency("list patients", err)
	}
	return items, total, nil
}

// Stats are the doctor dashboard counters.
type Stats struct {
	ActivePatients int `json:"activePatients"`
	PendingOrders  int `json:"pendingOrders"`
	ReadyForReview int `json:"readyForReview"`
}

func (s *Service) DashboardStats(ctx context.Context, doctorID string) (*Stats, error) {
	active, err := s.users.CountPatients(ctx, doctorID, "")
	if err != nil {
		return nil, apperr.Dependency("count patients", err)
	}
	pending, err := s.users.CountPatients(ctx, doctorID, user.StatusPending)
	if err != nil {
		return nil, apperr.Dependency("count pending patients", err)
	}
	ready, err := s.assessments.CountPendingReview(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return &Stats{ActivePatients: active, PendingOrders: pending, ReadyForReview: ready}, nil
}

func (s *Service) record(ctx context.Context, actorID string, action auditlog.Action, targetID string, details map[string]interface{}) error {
	_, err := s.audit.Record(ctx, auditlog.Event{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditlog.TargetUser,
		TargetID:   targetID,
		Details:    details,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Str("target_id", targetID).Msg("audit write failed")
		return apperr.Dependency("record audit entry", err)
	}
	return nil
}

func checkDateOfBirth(dob string) error {
	if dob == "" {
		return nil
	}
	if _, err := time.Parse(dateOfBirthLayout, dob); err != nil {
		return apperr.Validation("dateOfBirth", "dateOfBirth must be a date in YYYY-MM-DD format")
	}
	return nil
}
