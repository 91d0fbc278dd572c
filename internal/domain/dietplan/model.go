package dietplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// DietPlan maps to the diet_plan table. MacroGrams is always derived from
// DailyCalories and Distribution; clients cannot set it.
type DietPlan struct {
	ID             uuid.UUID                `json:"id"`
	PatientID      uuid.UUID                `json:"patient_id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	Notes          string                   `json:"notes"`
	Preset         string                   `json:"preset,omitempty"`
	Status         Status                   `json:"status"`
	StartDate      *patient.Date            `json:"start_date,omitempty"`
	EndDate        *patient.Date            `json:"end_date,omitempty"`
	DailyCalories  int                      `json:"daily_calories"`
	Distribution   nutrition.Distribution   `json:"distribution"`
	MacroGrams     nutrition.MacroGrams     `json:"macro_grams"`
	Micronutrients nutrition.Micronutrients `json:"micronutrients"`
	WaterGlasses   int                      `json:"water_glasses"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// Payload returns the submission shape for the plan.
func (p *DietPlan) Payload() nutrition.Payload {
	return nutrition.PayloadFor(p.DailyCalories, p.Distribution)
}

// FromTarget builds an unsaved plan from a derived or edited target.
func FromTarget(patientID uuid.UUID, name string, t nutrition.Target) *DietPlan {
	return &DietPlan{
		PatientID:      patientID,
		Name:           name,
		Description:    t.Description,
		Notes:          t.Notes,
		Preset:         t.Preset,
		Status:         StatusDraft,
		DailyCalories:  t.DailyCalories,
		Distribution:   t.Distribution,
		MacroGrams:     t.MacroGramsPerDay,
		Micronutrients: t.Micronutrients,
		WaterGlasses:   t.WaterGlassesPerDay,
	}
}
