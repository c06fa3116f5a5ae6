package inbox

import "time"

// Notification tells a doctor that one of their patients submitted an
// assessment.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	DoctorID  string    `json:"doctorId" bson:"doctorId"`
	PatientID string    `json:"patientId" bson:"patientId"`
	Message   string    `json:"message" bson:"message"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
