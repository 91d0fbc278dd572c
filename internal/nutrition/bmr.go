package nutrition

import (
	"math"

	"github.com/nutriplan/nutriplan/internal/clinical"
)

const (
	// DefaultCalories is used whenever weight or height is missing.
	DefaultCalories = 2000
	// DefaultAge is used by the BMR equations when the age is unknown.
	DefaultAge = 30
)

// BasalMetabolicRate applies the revised Harris-Benedict equations. Patients
// without a recorded sex use the female equation.
func BasalMetabolicRate(weightKg, heightM float64, age int, sex clinical.Sex) float64 {
	heightCm := heightM * 100
	a := float64(age)
	if sex == clinical.SexMale {
		return 88.362 + 13.397*weightKg + 4.799*heightCm - 5.677*a
	}
	return 447.593 + 9.247*weightKg + 3.098*heightCm - 4.330*a
}

// TotalDailyEnergy is round(bmr * multiplier).
func TotalDailyEnergy(bmr, multiplier float64) int {
	return int(math.Round(bmr * multiplier))
}
