package nutrition

import (
	"fmt"
	"strings"

	"github.com/nutriplan/nutriplan/internal/clinical"
)

// Lab thresholds that get flagged in the notes.
const (
	glucoseFlagMgDL     = 126
	systolicFlagMmHg    = 140
	diastolicFlagMmHg   = 90
	cholesterolFlagMgDL = 240
)

var conditionTips = map[Condition]string{
	ConditionOverweight:   "Déficit calórico moderado; priorizar verduras, proteína magra y fibra para favorecer la saciedad.",
	ConditionUnderweight:  "Superávit calórico progresivo con comidas frecuentes y densas en nutrientes.",
	ConditionDiabetes:     "Control de carbohidratos: preferir alimentos de bajo índice glucémico y repartir los carbohidratos a lo largo del día.",
	ConditionHypertension: "Reducir sodio: evitar embutidos, enlatados y ultraprocesados; no añadir sal en la mesa.",
	ConditionRenal:        "Moderar la proteína y vigilar potasio y fósforo según indicación médica.",
	ConditionDyslipidemia: "Limitar grasas saturadas y trans; aumentar fibra soluble, pescado azul y frutos secos.",
}

// Summarize assembles the free-text notes from whichever fields are present.
// The output is meant to be reviewed and edited by the nutritionist.
func Summarize(s clinical.Snapshot, cs Conditions) string {
	var sentences []string

	var profile []string
	if s.Age != nil {
		profile = append(profile, fmt.Sprintf("%d años", *s.Age))
	}
	if s.WeightKg != nil {
		profile = append(profile, fmt.Sprintf("peso %.1f kg", *s.WeightKg))
	}
	if s.HeightM != nil {
		profile = append(profile, fmt.Sprintf("talla %.2f m", *s.HeightM))
	}
	if bmi, ok := s.BMI(); ok {
		profile = append(profile, fmt.Sprintf("IMC %.1f", bmi))
	}
	if len(profile) > 0 {
		sentences = append(sentences, "Paciente: "+strings.Join(profile, ", ")+".")
	}

	if d := s.DiagnosisText(); d != "" {
		sentences = append(sentences, "Diagnóstico: "+d+".")
	}
	if a := strings.TrimSpace(s.ActivityLevel); a != "" {
		sentences = append(sentences, "Actividad física: "+a+".")
	}
	if h := strings.TrimSpace(s.ConsumptionHabits); h != "" {
		sentences = append(sentences, "Hábitos de consumo: "+h+".")
	}
	if w := strings.TrimSpace(s.WaterIntake); w != "" {
		sentences = append(sentences, "Consumo de agua: "+w+".")
	}
	if flags := labFlags(s); len(flags) > 0 {
		sentences = append(sentences, "Indicadores a vigilar: "+strings.Join(flags, ", ")+".")
	}

	for _, c := range cs {
		if tip, ok := conditionTips[c]; ok {
			sentences = append(sentences, tip)
		}
	}
	return strings.Join(sentences, " ")
}

// Describe is the one-line plan description.
func Describe(calories int, d Distribution, preset string) string {
	desc := fmt.Sprintf("Plan de %d kcal/día con %d%% proteínas, %d%% carbohidratos y %d%% grasas",
		calories, d.Protein, d.Carbohydrates, d.Fats)
	if preset != "" {
		desc += " (" + preset + ")"
	}
	return desc + "."
}

func labFlags(s clinical.Snapshot) []string {
	var flags []string
	if s.GlucoseMgDL != nil && *s.GlucoseMgDL >= glucoseFlagMgDL {
		flags = append(flags, fmt.Sprintf("glucosa %.0f mg/dL", *s.GlucoseMgDL))
	}
	highSys := s.SystolicBP != nil && *s.SystolicBP >= systolicFlagMmHg
	highDia := s.DiastolicBP != nil && *s.DiastolicBP >= diastolicFlagMmHg
	if highSys || highDia {
		flags = append(flags, "presión arterial "+bloodPressure(s)+" mmHg")
	}
	if s.CholesterolMgDL != nil && *s.CholesterolMgDL >= cholesterolFlagMgDL {
		flags = append(flags, fmt.Sprintf("colesterol %.0f mg/dL", *s.CholesterolMgDL))
	}
	return flags
}

func bloodPressure(s clinical.Snapshot) string {
	sys, dia := "?", "?"
	if s.SystolicBP != nil {
		sys = fmt.Sprintf("%.0f", *s.SystolicBP)
	}
	if s.DiastolicBP != nil {
		dia = fmt.Sprintf("%.0f", *s.DiastolicBP)
	}
	return sys + "/" + dia
}
