package nutrition

import "github.com/nutriplan/nutriplan/pkg/textfold"

// Condition is a clinical condition recognised in free-text diagnoses. The
// arithmetic rules only ever look at Condition values, never at the text.
type Condition string

const (
	ConditionOverweight   Condition = "overweight"
	ConditionUnderweight  Condition = "underweight"
	ConditionDiabetes     Condition = "diabetes"
	ConditionHypertension Condition = "hypertension"
	ConditionRenal        Condition = "renal"
	ConditionDyslipidemia Condition = "dyslipidemia"
)

type conditionKeywords struct {
	condition Condition
	keywords  []string
}

// conditionTable is ordered; Classify reports conditions in this order.
var conditionTable = []conditionKeywords{
	{ConditionOverweight, []string{"sobrepeso", "obesidad", "obeso", "obesa", "overweight", "obesity"}},
	{ConditionUnderweight, []string{"bajo peso", "desnutricion", "underweight", "malnutrition"}},
	{ConditionDiabetes, []string{"diabetes", "diabetico", "diabetica", "diabetic", "resistencia a la insulina", "insulin resistance"}},
	{ConditionHypertension, []string{"hipertension", "hypertension", "presion alta", "high blood pressure"}},
	{ConditionRenal, []string{"renal", "rinon", "kidney", "nefropatia", "nephropathy"}},
	{ConditionDyslipidemia, []string{"dislipidemia", "colesterol alto", "hipercolesterolemia", "trigliceridos altos", "dyslipidemia", "high cholesterol"}},
}

// Conditions is an ordered, duplicate-free set of conditions.
type Conditions []Condition

// Classify scans the given texts for known condition keywords.
func Classify(texts ...string) Conditions {
	var out Conditions
	for _, row := range conditionTable {
		for _, text := range texts {
			if textfold.ContainsAny(text, row.keywords...) {
				out = append(out, row.condition)
				break
			}
		}
	}
	return out
}

// clone copies the set. The copy is never nil so it encodes as [].
func (cs Conditions) clone() Conditions {
	out := make(Conditions, len(cs))
	copy(out, cs)
	return out
}

// Has reports whether c is in the set.
func (cs Conditions) Has(c Condition) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

type caloricAdjustment struct {
	condition Condition
	factor    float64
}

// Checked in order; the first present condition wins and adjustments never stack.
var caloricAdjustments = []caloricAdjustment{
	{ConditionOverweight, 0.85},
	{ConditionUnderweight, 1.15},
}

// CaloricFactor returns the multiplier applied to TDEE for the given conditions.
func CaloricFactor(cs Conditions) float64 {
	for _, adj := range caloricAdjustments {
		if cs.Has(adj.condition) {
			return adj.factor
		}
	}
	return 1
}
