package domain

// Generated content is modelled as a closed union of document shapes rather
// than free-form JSON. The generator boundary validates raw output against a
// schema for the requested kind before one of these types is ever stored.

// GeneratedDocument is implemented by every document shape the content
// generator can produce.
type GeneratedDocument interface {
	DocumentKind() EntityKind
}

// TrainingPlanDocument is the structured plan produced for a TrainingPlan.
type TrainingPlanDocument struct {
	Title   string     `bson:"title" json:"title"`
	Summary string     `bson:"summary" json:"summary"`
	Weeks   []PlanWeek `bson:"weeks" json:"weeks"`
}

type PlanWeek struct {
	Number   int           `bson:"number" json:"number"` // 1-based week index
	Focus    string        `bson:"focus,omitempty" json:"focus,omitempty"`
	Sessions []PlanSession `bson:"sessions" json:"sessions"`
}

type PlanSession struct {
	Day             string `bson:"day" json:"day"` // e.g., "monday"
	Title           string `bson:"title" json:"title"`
	Description     string `bson:"description,omitempty" json:"description,omitempty"`
	DurationMinutes int    `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Intensity       string `bson:"intensity,omitempty" json:"intensity,omitempty"` // "easy" | "moderate" | "hard"
}

func (d *TrainingPlanDocument) DocumentKind() EntityKind { return KindTrainingPlan }

// SessionSummaryDocument is the narrative summary produced for a SessionLog.
type SessionSummaryDocument struct {
	Headline   string   `bson:"headline" json:"headline"`
	Summary    string   `bson:"summary" json:"summary"`
	Highlights []string `bson:"highlights,omitempty" json:"highlights,omitempty"`
	CoachNotes string   `bson:"coachNotes,omitempty" json:"coachNotes,omitempty"`
}

func (d *SessionSummaryDocument) DocumentKind() EntityKind { return KindSessionLog }
