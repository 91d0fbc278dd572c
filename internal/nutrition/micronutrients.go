package nutrition

import (
	"math"

	"github.com/nutriplan/nutriplan/internal/clinical"
)

// Micronutrients are daily guidance values. Units: fiber and sugar in grams,
// sodium, calcium, iron and vitamin C in milligrams, vitamin D in IU.
type Micronutrients struct {
	Fiber    int `json:"fiber"`
	Sodium   int `json:"sodium"`
	Sugar    int `json:"sugar"`
	Calcium  int `json:"calcium"`
	Iron     int `json:"iron"`
	VitaminC int `json:"vitaminC"`
	VitaminD int `json:"vitaminD"`
}

const (
	fiberPer1000Kcal     = 14
	sodiumDefaultMg      = 2300
	sodiumHypertensionMg = 1500
	sodiumRenalMg        = 2000
	sugarShare           = 0.10
	sugarShareDiabetes   = 0.05
	glassMl              = 250
	waterMlPerKg         = 35
	defaultWaterGlasses  = 8
	minWaterGlasses      = 6
)

// RecommendMicronutrients derives micronutrient guidance. age <= 0 means unknown.
func RecommendMicronutrients(calories, age int, sex clinical.Sex, cs Conditions) Micronutrients {
	m := Micronutrients{
		Fiber:    int(math.Round(float64(calories) / 1000 * fiberPer1000Kcal)),
		Sodium:   sodiumDefaultMg,
		Calcium:  1000,
		Iron:     8,
		VitaminC: 75,
		VitaminD: 600,
	}

	sugar := sugarShare
	if cs.Has(ConditionDiabetes) {
		sugar = sugarShareDiabetes
	}
	m.Sugar = int(math.Round(float64(calories) * sugar / 4))

	switch {
	case cs.Has(ConditionHypertension):
		m.Sodium = sodiumHypertensionMg
	case cs.Has(ConditionRenal):
		m.Sodium = sodiumRenalMg
	}

	if age > 50 {
		m.Calcium = 1200
	}
	if age > 70 {
		m.VitaminD = 800
	}

	switch sex {
	case clinical.SexMale:
		m.VitaminC = 90
	case clinical.SexFemale, clinical.SexUnspecified:
		if age <= 50 {
			m.Iron = 18
		}
	}
	return m
}

// WaterGlasses recommends 250 ml glasses per day from body weight.
func WaterGlasses(weightKg *float64) int {
	if weightKg == nil || *weightKg <= 0 {
		return defaultWaterGlasses
	}
	glasses := int(math.Round(*weightKg * waterMlPerKg / glassMl))
	if glasses < minWaterGlasses {
		return minWaterGlasses
	}
	return glasses
}
