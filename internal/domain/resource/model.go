package resource

import "time"

// Category groups doctor-curated resources.
type Category string

const (
	CategoryCrisis    Category = "Crisis"
	CategoryCoping    Category = "Coping"
	CategoryTherapy   Category = "Therapy"
	CategoryEducation Category = "Education"
	CategoryOther     Category = "Other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCrisis, CategoryCoping, CategoryTherapy, CategoryEducation, CategoryOther:
		return true
	}
	return false
}

// Resource is a link a doctor shares with their patients. It is separate from
// the fixed recommendation catalog returned with assessment results.
type Resource struct {
	ID          string    `json:"id" bson:"_id"`
	DoctorID    string    `json:"doctorId" bson:"doctorId"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	URL         string    `json:"url" bson:"url"`
	Category    Category  `json:"category" bson:"category"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Input is the editable part of a resource.
type Input struct {
	Title       string
	Description string
	URL         string
	Category    Category
}
