package clinical

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nutriplan/nutriplan/pkg/textfold"
)

// ErrInvalidRecord is returned when the clinical record is not JSON at all.
var ErrInvalidRecord = errors.New("clinical record is not valid JSON")

// Records reach the boundary with the clinical block either inline, nested
// under one of these keys, or nested as a JSON-encoded string.
var containerKeys = []string{
	"clinical_data", "clinicalData", "clinical", "datos_clinicos", "datosClinicos",
	"anthropometrics", "antropometria", "medical_history", "medicalHistory", "historiaClinica",
}

var (
	weightKeys      = []string{"weight_kg", "weightKg", "weight", "peso", "peso_kg"}
	heightKeys      = []string{"height_m", "heightM", "height", "talla", "altura", "estatura", "height_cm", "heightCm", "talla_cm"}
	ageKeys         = []string{"age", "edad"}
	birthDateKeys   = []string{"birth_date", "birthDate", "fecha_nacimiento", "fechaNacimiento", "dob"}
	sexKeys         = []string{"sex", "sexo", "gender", "genero"}
	activityKeys    = []string{"activity_level", "activityLevel", "nivel_actividad", "nivelActividad", "actividad_fisica", "actividadFisica", "activity", "actividad"}
	systolicKeys    = []string{"systolic_bp", "systolicBP", "systolic", "sistolica", "presion_sistolica", "presionSistolica"}
	diastolicKeys   = []string{"diastolic_bp", "diastolicBP", "diastolic", "diastolica", "presion_diastolica", "presionDiastolica"}
	bloodPressKeys  = []string{"blood_pressure", "bloodPressure", "presion_arterial", "presionArterial", "tension_arterial"}
	glucoseKeys     = []string{"glucose_mg_dl", "glucose", "glucosa", "glucemia", "glicemia"}
	cholesterolKeys = []string{"cholesterol_mg_dl", "cholesterol", "colesterol", "colesterol_total"}
	diagnosisKeys   = []string{"diagnosis", "diagnostico", "diagnóstico", "diagnosticoMedico"}
	diseasesKeys    = []string{"diseases", "enfermedades", "conditions", "patologias", "antecedentes"}
	habitsKeys      = []string{"consumption_habits", "consumptionHabits", "habitos_consumo", "habitosConsumo", "habitos", "habits"}
	waterKeys       = []string{"water_intake", "waterIntake", "consumo_agua", "consumoAgua", "agua"}
)

var (
	numberPattern        = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)
	bloodPressurePattern = regexp.MustCompile(`(\d{2,3})\s*/\s*(\d{2,3})`)
)

const poundsToKg = 0.45359237

// Parse reads a clinical record in any of the shapes the clients send and
// returns the validated snapshot. Only input that is not JSON at all is an
// error; unreadable fields are left empty.
func Parse(raw []byte) (Snapshot, error) {
	return ParseAt(raw, time.Now())
}

// ParseAt is Parse with an explicit reference time for deriving age from a
// birth date.
func ParseAt(raw []byte, now time.Time) (Snapshot, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Snapshot{}, nil
	}
	if !gjson.Valid(trimmed) {
		return Snapshot{}, ErrInvalidRecord
	}

	root := gjson.Parse(trimmed)
	// Whole record double-encoded as a JSON string.
	if root.Type == gjson.String && gjson.Valid(root.Str) {
		root = gjson.Parse(root.Str)
	}
	if !root.IsObject() {
		return Snapshot{}, ErrInvalidRecord
	}

	p := recordParser{scopes: scopesOf(root)}
	var s Snapshot

	if v, src, ok := p.number(weightKeys); ok {
		if strings.Contains(textfold.Fold(src), "lb") {
			v *= poundsToKg
		}
		s.WeightKg = Float(v)
	}
	if v, key, ok := p.numberWithKey(heightKeys); ok {
		if strings.HasSuffix(strings.ToLower(key), "cm") || v > 3 {
			v /= 100
		}
		s.HeightM = Float(v)
	}
	if v, _, ok := p.number(ageKeys); ok {
		s.Age = Int(int(v))
	} else if bd, ok := p.text(birthDateKeys); ok {
		if age, ok := ageFromBirthDate(bd, now); ok {
			s.Age = Int(age)
		}
	}
	if v, ok := p.text(sexKeys); ok {
		s.Sex = ParseSex(v)
	}
	s.ActivityLevel, _ = p.text(activityKeys)

	if v, _, ok := p.number(systolicKeys); ok {
		s.SystolicBP = Float(v)
	}
	if v, _, ok := p.number(diastolicKeys); ok {
		s.DiastolicBP = Float(v)
	}
	if bp, ok := p.text(bloodPressKeys); ok && (s.SystolicBP == nil || s.DiastolicBP == nil) {
		if m := bloodPressurePattern.FindStringSubmatch(bp); m != nil {
			sys, _ := strconv.ParseFloat(m[1], 64)
			dia, _ := strconv.ParseFloat(m[2], 64)
			if s.SystolicBP == nil {
				s.SystolicBP = Float(sys)
			}
			if s.DiastolicBP == nil {
				s.DiastolicBP = Float(dia)
			}
		}
	}
	if v, _, ok := p.number(glucoseKeys); ok {
		s.GlucoseMgDL = Float(v)
	}
	if v, _, ok := p.number(cholesterolKeys); ok {
		s.CholesterolMgDL = Float(v)
	}

	s.Diagnosis, _ = p.text(diagnosisKeys)
	s.Diseases, _ = p.text(diseasesKeys)
	s.ConsumptionHabits, _ = p.text(habitsKeys)
	s.WaterIntake, _ = p.text(waterKeys)

	normalized, _ := Normalize(s)
	return normalized, nil
}

// ParseSex maps the spellings seen in records to a Sex value.
func ParseSex(v string) Sex {
	switch textfold.Fold(v) {
	case "m", "male", "masculino", "hombre", "h", "varon", "man":
		return SexMale
	case "f", "female", "femenino", "mujer", "woman":
		return SexFemale
	default:
		return SexUnspecified
	}
}

func scopesOf(root gjson.Result) []gjson.Result {
	scopes := []gjson.Result{root}
	for _, key := range containerKeys {
		r := root.Get(key)
		switch {
		case r.IsObject():
			scopes = append(scopes, r)
		case r.Type == gjson.String && gjson.Valid(r.Str):
			if nested := gjson.Parse(r.Str); nested.IsObject() {
				scopes = append(scopes, nested)
			}
		}
	}
	return scopes
}

type recordParser struct {
	scopes []gjson.Result
}

func (p recordParser) lookup(keys []string) (gjson.Result, string, bool) {
	for _, scope := range p.scopes {
		for _, key := range keys {
			r := scope.Get(gjson.Escape(key))
			if !r.Exists() || r.Type == gjson.Null {
				continue
			}
			if r.Type == gjson.String && strings.TrimSpace(r.Str) == "" {
				continue
			}
			return r, key, true
		}
	}
	return gjson.Result{}, "", false
}

// number returns the first numeric reading, plus the raw text it came from.
func (p recordParser) number(keys []string) (float64, string, bool) {
	v, _, src, ok := p.numeric(keys)
	return v, src, ok
}

func (p recordParser) numberWithKey(keys []string) (float64, string, bool) {
	v, key, _, ok := p.numeric(keys)
	return v, key, ok
}

func (p recordParser) numeric(keys []string) (float64, string, string, bool) {
	r, key, ok := p.lookup(keys)
	if !ok {
		return 0, "", "", false
	}
	switch r.Type {
	case gjson.Number:
		return r.Num, key, r.Raw, true
	case gjson.String:
		m := numberPattern.FindString(r.Str)
		if m == "" {
			return 0, "", "", false
		}
		f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		if err != nil {
			return 0, "", "", false
		}
		return f, key, r.Str, true
	default:
		return 0, "", "", false
	}
}

func (p recordParser) text(keys []string) (string, bool) {
	r, _, ok := p.lookup(keys)
	if !ok {
		return "", false
	}
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str), true
	case gjson.Number:
		return r.Raw, true
	case gjson.JSON:
		if !r.IsArray() {
			return "", false
		}
		var parts []string
		for _, item := range r.Array() {
			if item.Type == gjson.String && strings.TrimSpace(item.Str) != "" {
				parts = append(parts, strings.TrimSpace(item.Str))
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		return "", false
	}
}

var birthDateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006", "2006/01/02"}

func ageFromBirthDate(v string, now time.Time) (int, bool) {
	for _, layout := range birthDateLayouts {
		bd, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		return AgeAt(bd, now), true
	}
	return 0, false
}

// AgeAt returns the completed years between birth and now.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Before(birth.AddDate(age, 0, 0)) {
		age--
	}
	return age
}
