package user

import (
	"strings"
	"time"

	"github.com/mindful/mindful/internal/platform/auth"
)

// AssessmentStatus tracks a patient's current assignment.
type AssessmentStatus string

const (
	StatusIdle      AssessmentStatus = "idle"
	StatusPending   AssessmentStatus = "pending"
	StatusCompleted AssessmentStatus = "completed"
)

// User is a profile document in the users collection. Patients carry the
// assessment fields; doctors and admins leave them empty.
type User struct {
	ID                    string           `json:"id" bson:"_id"`
	Email                 string           `json:"email" bson:"email"`
	Role                  auth.Role        `json:"role" bson:"role"`
	FirstName             string           `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName              string           `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Phone                 string           `json:"phone,omitempty" bson:"phone,omitempty"`
	DateOfBirth           string           `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	EmergencyContactName  string           `json:"emergencyContactName,omitempty" bson:"emergencyContactName,omitempty"`
	EmergencyContactPhone string           `json:"emergencyContactPhone,omitempty" bson:"emergencyContactPhone,omitempty"`
	Source                string           `json:"source,omitempty" bson:"source,omitempty"`
	ProfileComplete       bool             `json:"profileComplete" bson:"profileComplete"`
	HIPAAConsent          bool             `json:"hipaaConsent" bson:"hipaaConsent"`
	DoctorID              string           `json:"doctorId,omitempty" bson:"doctorId,omitempty"`
	AssessmentStatus      AssessmentStatus `json:"assessmentStatus,omitempty" bson:"assessmentStatus,omitempty"`
	AssessmentSentAt      *time.Time       `json:"assessmentSentAt,omitempty" bson:"assessmentSentAt,omitempty"`
	LastAssessmentAt      *time.Time       `json:"lastAssessmentAt,omitempty" bson:"lastAssessmentAt,omitempty"`
	LastPhq9Score         *int             `json:"lastPhq9Score,omitempty" bson:"lastPhq9Score,omitempty"`
	LastGad7Score         *int             `json:"lastGad7Score,omitempty" bson:"lastGad7Score,omitempty"`
	CreatedAt             time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// DisplayName is "First Last", or the email when no name is set.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Role                  *auth.Role
	FirstName             *string
	LastName              *string
	Phone                 *string
	DateOfBirth           *string
	EmergencyContactName  *string
	EmergencyContactPhone *string
	ProfileComplete       *bool
	HIPAAConsent          *bool
	DoctorID              *string
	AssessmentStatus      *AssessmentStatus
	AssessmentSentAt      *time.Time
	LastAssessmentAt      *time.Time
	LastPhq9Score         *int
	LastGad7Score         *int
}

// field pairs a column with its document key.
type field struct {
	column string
	key    string
	value  interface{}
}

func (p Patch) fields() []field {
	var out []field
	add := func(column, key string, set bool, v interface{}) {
		if set {
			out = append(out, field{column: column, key: key, value: v})
		}
	}
	add("role", "role", p.Role != nil, deref(p.Role))
	add("first_name", "firstName", p.FirstName != nil, deref(p.FirstName))
	add("last_name", "lastName", p.LastName != nil, deref(p.LastName))
	add("phone", "phone", p.Phone != nil, deref(p.Phone))
	add("date_of_birth", "dateOfBirth", p.DateOfBirth != nil, deref(p.DateOfBirth))
	add("emergency_contact_name", "emergencyContactName", p.EmergencyContactName != nil, deref(p.EmergencyContactName))
	add("emergency_contact_phone", "emergencyContactPhone", p.EmergencyContactPhone != nil, deref(p.EmergencyContactPhone))
	add("profile_complete", "profileComplete", p.ProfileComplete != nil, deref(p.ProfileComplete))
	add("hipaa_consent", "hipaaConsent", p.HIPAAConsent != nil, deref(p.HIPAAConsent))
	add("doctor_id", "doctorId", p.DoctorID != nil, deref(p.DoctorID))
	add("assessment_status", "assessmentStatus", p.AssessmentStatus != nil, deref(p.AssessmentStatus))
	add("assessment_sent_at", "assessmentSentAt", p.AssessmentSentAt != nil, deref(p.AssessmentSentAt))
	add("last_assessment_at", "lastAssessmentAt", p.LastAssessmentAt != nil, deref(p.LastAssessmentAt))
	add("last_phq9_score", "lastPhq9Score", p.LastPhq9Score != nil, deref(p.LastPhq9Score))
	add("last_gad7_score", "lastGad7Score", p.LastGad7Score != nil, deref(p.LastGad7Score))
	return out
}

func (p Patch) Empty() bool { return len(p.fields()) == 0 }

// Apply merges p into u. In-memory repositories use it to mirror the stores.
func (p Patch) Apply(u *User) {
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	if p.EmergencyContactName != nil {
		u.EmergencyContactName = *p.EmergencyContactName
	}
	if p.EmergencyContactPhone != nil {
		u.EmergencyContactPhone = *p.EmergencyContactPhone
	}
	if p.ProfileComplete != nil {
		u.ProfileComplete = *p.ProfileComplete
	}
	if p.HIPAAConsent != nil {
		u.HIPAAConsent = *p.HIPAAConsent
	}
	if p.DoctorID != nil {
		u.DoctorID = *p.DoctorID
	}
	if p.AssessmentStatus != nil {
		u.AssessmentStatus = *p.AssessmentStatus
	}
	if p.AssessmentSentAt != nil {
		t := *p.AssessmentSentAt
		u.AssessmentSentAt = &t
	}
	if p.LastAssessmentAt != nil {
		t := *p.LastAssessmentAt
		u.LastAssessmentAt = &t
	}
	if p.LastPhq9Score != nil {
		n := *p.LastPhq9Score
		u.LastPhq9Score = &n
	}
	if p.LastGad7Score != nil {
		n := *p.LastGad7Score
		u.LastGad7Score = &n
	}
	u.UpdatedAt = time.Now().UTC()
}

func deref[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }
