package screening

type Category string

const (
	CategoryCrisis  Category = "Crisis"
	CategoryCoping  Category = "Coping"
	CategoryTherapy Category = "Therapy"
)

// Resource is a catalog entry offered after submission.
type Resource struct {
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description" bson:"description"`
	URL         string   `json:"url" bson:"url"`
	Category    Category `json:"category" bson:"category"`
}

var catalog = map[Category][]Resource{
	CategoryCrisis: {
		{
			Title:       "Crisis Text Line",
			Description: "Connect with a crisis counselor for free, 24/7 support. Text HOME to 741741.",
			URL:         "https://www.crisistextline.org/",
		},
		{
			Title:       "988 Suicide & Crisis Lifeline",
			Description: "Free and confidential support for people in distress, prevention and crisis resources for you or your loved ones.",
			URL:         "https://988lifeline.org/",
		},
	},
	CategoryCoping: {
		{
			Title:       "Headspace: Meditation & Sleep",
			Description: "Learn to meditate and live mindfully. Guided meditations, sleep sounds, and more.",
			URL:         "https://www.headspace.com/",
		},
		{
			Title:       "Calm App",
			Description: "Improve your health and happiness with our app for sleep, meditation and relaxation.",
			URL:         "https://www.calm.com/",
		},
		{
			Title:       "Moodfit App",
			Description: "A mental health app that provides a set of customizable tools to help you manage stress and anxiety.",
			URL:         "https://www.getmoodfit.com/",
		},
	},
	CategoryTherapy: {
		{
			Title:       "Psychology Today Therapist Finder",
			Description: "Find detailed professional listings for therapists, psychologists, and counselors in your area.",
			URL:         "https://www.psychologytoday.com/us/therapists",
		},
		{
			Title:       "National Alliance on Mental Illness (NAMI)",
			Description: "NAMI provides advocacy, education, support and public awareness so that all individuals and families affected by mental illness can build better lives.",
			URL:         "https://www.nami.org/",
		},
	},
}

// Catalog returns every resource of c with its category set.
func Catalog(c Category) []Resource {
	src := catalog[c]
	out := make([]Resource, len(src))
	for i, r := range src {
		r.Category = c
		out[i] = r
	}
	return out
}

// SelectResources unions the tiers matched by the scores. Therapy is always
// included. Order is Crisis, Coping, Therapy.
func SelectResources(phq9, gad7 int) []Resource {
	var out []Resource
	if phq9 >= 20 || gad7 >= 15 {
		out = append(out, Catalog(CategoryCrisis)...)
	}
	if (phq9 >= 10 && phq9 < 20) || (gad7 >= 10 && gad7 < 15) {
		out = append(out, Catalog(CategoryCoping)...)
	}
	return append(out, Catalog(CategoryTherapy)...)
}
