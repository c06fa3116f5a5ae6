package auditlog

import "time"

// Action names a reviewable clinical or administrative action.
type Action string

const (
	ActionAssessmentCompleted Action = "ASSESSMENT_COMPLETED"
	ActionAddDoctorNote       Action = "ADD_DOCTOR_NOTE"
	ActionEmailResultsToSelf  Action = "EMAIL_RESULTS_TO_SELF"
	ActionUpdateUserProfile   Action = "UPDATE_USER_PROFILE"
	ActionSendAssessment      Action = "SEND_ASSESSMENT"
	ActionResendInvite        Action = "RESEND_INVITE"
	ActionViewPatientHistory  Action = "VIEW_PATIENT_HISTORY"
	ActionDeletePatient       Action = "DELETE_PATIENT"
	ActionUpdateUserRole      Action = "UPDATE_USER_ROLE"
)

// Target types recorded on entries.
const (
	TargetUser       = "user"
	TargetAssessment = "assessment"
)

// Actor email placeholders.
const (
	EmailUnavailable = "N/A"
	EmailUnknown     = "Unknown User"
)

// Entry is an append-only audit record. Field names are part of the
// compliance export and must not change.
type Entry struct {
	ID         string                 `json:"id" bson:"_id"`
	ActorID    string                 `json:"actorId" bson:"actorId"`
	ActorEmail string                 `json:"actorEmail" bson:"actorEmail"`
	Action     Action                 `json:"action" bson:"action"`
	TargetType string                 `json:"targetType" bson:"targetType"`
	TargetID   string                 `json:"targetId" bson:"targetId"`
	Details    map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp" bson:"timestamp"`
}

// Event is what a workflow asks the Recorder to write.
type Event struct {
	ActorID    string
	Action     Action
	TargetType string
	TargetID   string
	Details    map[string]interface{}
}
