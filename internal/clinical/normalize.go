package clinical

import "fmt"

// Correction describes one change Normalize made to a snapshot.
type Correction struct {
	Field  string `json:"field"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

const (
	CorrectionHeightUnit       = "height_unit"
	CorrectionImplausibleValue = "implausible_value"
)

type bounds struct{ min, max float64 }

var (
	weightBounds      = bounds{2, 400}
	heightBounds      = bounds{0.4, 2.6}
	ageBounds         = bounds{0, 120}
	systolicBounds    = bounds{50, 260}
	diastolicBounds   = bounds{30, 160}
	glucoseBounds     = bounds{20, 800}
	cholesterolBounds = bounds{50, 600}
)

func (b bounds) contains(v float64) bool { return v >= b.min && v <= b.max }

// Normalize converts heights recorded in centimetres to metres and clears
// values outside physiological ranges. It returns the corrected copy and the
// list of corrections applied.
func Normalize(s Snapshot) (Snapshot, []Correction) {
	var out []Correction

	if s.HeightM != nil && *s.HeightM > 3 && heightBounds.contains(*s.HeightM/100) {
		out = append(out, Correction{
			Field:  "height_m",
			Kind:   CorrectionHeightUnit,
			Detail: fmt.Sprintf("%.1f looks like centimetres, stored as %.2f m", *s.HeightM, *s.HeightM/100),
		})
		s.HeightM = Float(*s.HeightM / 100)
	}

	s.WeightKg = clearOutside(s.WeightKg, weightBounds, "weight_kg", &out)
	s.HeightM = clearOutside(s.HeightM, heightBounds, "height_m", &out)
	s.SystolicBP = clearOutside(s.SystolicBP, systolicBounds, "systolic_bp", &out)
	s.DiastolicBP = clearOutside(s.DiastolicBP, diastolicBounds, "diastolic_bp", &out)
	s.GlucoseMgDL = clearOutside(s.GlucoseMgDL, glucoseBounds, "glucose_mg_dl", &out)
	s.CholesterolMgDL = clearOutside(s.CholesterolMgDL, cholesterolBounds, "cholesterol_mg_dl", &out)

	if s.Age != nil && !ageBounds.contains(float64(*s.Age)) {
		out = append(out, Correction{
			Field:  "age",
			Kind:   CorrectionImplausibleValue,
			Detail: fmt.Sprintf("%d outside [%.0f, %.0f], cleared", *s.Age, ageBounds.min, ageBounds.max),
		})
		s.Age = nil
	}

	return s, out
}

func clearOutside(v *float64, b bounds, field string, out *[]Correction) *float64 {
	if v == nil || b.contains(*v) {
		return v
	}
	*out = append(*out, Correction{
		Field:  field,
		Kind:   CorrectionImplausibleValue,
		Detail: fmt.Sprintf("%g outside [%g, %g], cleared", *v, b.min, b.max),
	})
	return nil
}
