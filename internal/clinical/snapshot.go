package clinical

import (
	"math"
	"strings"
)

// Sex is the biological sex used by the metabolic equations.
type Sex string

const (
	SexUnspecified Sex = ""
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
)

// Snapshot is the subset of a patient's clinical record used to derive
// nutritional targets. Every field is optional.
type Snapshot struct {
	WeightKg          *float64 `json:"weight_kg,omitempty"`
	HeightM           *float64 `json:"height_m,omitempty"`
	Age               *int     `json:"age,omitempty"`
	Sex               Sex      `json:"sex,omitempty"`
	ActivityLevel     string   `json:"activity_level,omitempty"`
	SystolicBP        *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP       *float64 `json:"diastolic_bp,omitempty"`
	GlucoseMgDL       *float64 `json:"glucose_mg_dl,omitempty"`
	CholesterolMgDL   *float64 `json:"cholesterol_mg_dl,omitempty"`
	Diagnosis         string   `json:"diagnosis,omitempty"`
	Diseases          string   `json:"diseases,omitempty"`
	ConsumptionHabits string   `json:"consumption_habits,omitempty"`
	WaterIntake       string   `json:"water_intake,omitempty"`
}

// HasAnthropometrics reports whether both weight and height are known and positive.
func (s Snapshot) HasAnthropometrics() bool {
	return s.WeightKg != nil && *s.WeightKg > 0 && s.HeightM != nil && *s.HeightM > 0
}

// BMI returns weight / height², rounded to one decimal.
func (s Snapshot) BMI() (float64, bool) {
	if !s.HasAnthropometrics() {
		return 0, false
	}
	h := *s.HeightM
	return math.Round(*s.WeightKg/(h*h)*10) / 10, true
}

// DiagnosisText joins the diagnosis and diseases fields for keyword matching.
func (s Snapshot) DiagnosisText() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{s.Diagnosis, s.Diseases} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "; ")
}

// IsEmpty reports whether no field carries a value.
func (s Snapshot) IsEmpty() bool {
	return s.WeightKg == nil && s.HeightM == nil && s.Age == nil && s.Sex == SexUnspecified &&
		s.ActivityLevel == "" && s.SystolicBP == nil && s.DiastolicBP == nil &&
		s.GlucoseMgDL == nil && s.CholesterolMgDL == nil && s.Diagnosis == "" &&
		s.Diseases == "" && s.ConsumptionHabits == "" && s.WaterIntake == ""
}

// Float returns a pointer to v. Convenience for building snapshots in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
