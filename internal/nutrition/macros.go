package nutrition

import (
	"fmt"
	"math"
	"sort"

	"github.com/nutriplan/nutriplan/pkg/textfold"
)

const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

// Axis names one macronutrient of a distribution.
type Axis string

const (
	AxisProtein       Axis = "protein"
	AxisCarbohydrates Axis = "carbohydrates"
	AxisFats          Axis = "fats"
)

// ParseAxis accepts the axis name in English or Spanish.
func ParseAxis(s string) (Axis, error) {
	switch textfold.Fold(s) {
	case "protein", "proteins", "proteina", "proteinas":
		return AxisProtein, nil
	case "carbohydrates", "carbs", "carbohidratos":
		return AxisCarbohydrates, nil
	case "fats", "fat", "grasas", "grasa", "lipidos":
		return AxisFats, nil
	}
	return "", fmt.Errorf("unknown macro axis %q", s)
}

// Distribution is the percentage split of daily calories.
type Distribution struct {
	Protein       int `json:"protein" mapstructure:"protein"`
	Carbohydrates int `json:"carbohydrates" mapstructure:"carbohydrates"`
	Fats          int `json:"fats" mapstructure:"fats"`
}

// DefaultDistribution is the starting split before presets or conditions.
func DefaultDistribution() Distribution {
	return Distribution{Protein: 30, Carbohydrates: 45, Fats: 25}
}

func (d Distribution) Sum() int { return d.Protein + d.Carbohydrates + d.Fats }

// Valid reports whether every axis is within [0,100] and the triple sums to 100.
func (d Distribution) Valid() bool {
	for _, v := range []int{d.Protein, d.Carbohydrates, d.Fats} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return d.Sum() == 100
}

// With sets one axis and redistributes the remainder over the other two, so
// the result always sums to exactly 100. Protein edits give carbohydrates 60%
// of the remainder and fats 40%; carbohydrate edits split it evenly between
// protein and fats; fat edits give carbohydrates 60% and protein 40%.
func (d Distribution) With(axis Axis, value int) Distribution {
	value = clamp(value, 0, 100)
	rest := 100 - value
	switch axis {
	case AxisProtein:
		carbs := roundShare(rest, 0.6)
		return Distribution{Protein: value, Carbohydrates: carbs, Fats: rest - carbs}
	case AxisCarbohydrates:
		protein := roundShare(rest, 0.5)
		return Distribution{Protein: protein, Carbohydrates: value, Fats: rest - protein}
	case AxisFats:
		carbs := roundShare(rest, 0.6)
		return Distribution{Protein: rest - carbs, Carbohydrates: carbs, Fats: value}
	}
	return d
}

// Normalize rescales the triple to sum to 100 using largest remainders. A
// triple with no positive axis falls back to DefaultDistribution.
func (d Distribution) Normalize() Distribution {
	vals := []int{max(d.Protein, 0), max(d.Carbohydrates, 0), max(d.Fats, 0)}
	total := vals[0] + vals[1] + vals[2]
	if total == 0 {
		return DefaultDistribution()
	}
	if total == 100 {
		return Distribution{Protein: vals[0], Carbohydrates: vals[1], Fats: vals[2]}
	}

	type part struct {
		idx  int
		frac float64
	}
	out := make([]int, 3)
	parts := make([]part, 3)
	assigned := 0
	for i, v := range vals {
		exact := float64(v) * 100 / float64(total)
		out[i] = int(math.Floor(exact))
		parts[i] = part{idx: i, frac: exact - float64(out[i])}
		assigned += out[i]
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].frac > parts[j].frac })
	for k := 0; assigned < 100; k++ {
		out[parts[k%3].idx]++
		assigned++
	}
	return Distribution{Protein: out[0], Carbohydrates: out[1], Fats: out[2]}
}

// ForConditions applies the condition-based caps. Renal disease caps protein
// at 15% (excess to carbohydrates); diabetes then caps carbohydrates at 40%
// (excess to fats). Hypertension only affects sodium.
func (d Distribution) ForConditions(cs Conditions) Distribution {
	if cs.Has(ConditionRenal) && d.Protein > renalProteinCap {
		d.Carbohydrates += d.Protein - renalProteinCap
		d.Protein = renalProteinCap
	}
	if cs.Has(ConditionDiabetes) && d.Carbohydrates > diabetesCarbCap {
		d.Fats += d.Carbohydrates - diabetesCarbCap
		d.Carbohydrates = diabetesCarbCap
	}
	return d
}

const (
	renalProteinCap = 15
	diabetesCarbCap = 40
)

func (d Distribution) String() string {
	return fmt.Sprintf("%d/%d/%d", d.Protein, d.Carbohydrates, d.Fats)
}

// MacroGrams are daily grams per macronutrient.
type MacroGrams struct {
	Protein       int `json:"protein"`
	Carbohydrates int `json:"carbohydrates"`
	Fats          int `json:"fats"`
}

// Grams converts calories and a distribution into grams per day.
func Grams(calories int, d Distribution) MacroGrams {
	c := float64(calories)
	return MacroGrams{
		Protein:       int(math.Round(c * float64(d.Protein) / 100 / kcalPerGramProtein)),
		Carbohydrates: int(math.Round(c * float64(d.Carbohydrates) / 100 / kcalPerGramCarbs)),
		Fats:          int(math.Round(c * float64(d.Fats) / 100 / kcalPerGramFat)),
	}
}

// Calories returns the energy the grams provide.
func (g MacroGrams) Calories() int {
	return kcalPerGramProtein*g.Protein + kcalPerGramCarbs*g.Carbohydrates + kcalPerGramFat*g.Fats
}

// Preset is a named distribution offered to the nutritionist.
type Preset struct {
	Name         string       `json:"name" mapstructure:"name"`
	Distribution Distribution `json:"distribution" mapstructure:"distribution"`
}

// DefaultPresets returns the built-in presets.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Equilibrada", Distribution: Distribution{Protein: 20, Carbohydrates: 50, Fats: 30}},
		{Name: "Pérdida de Peso", Distribution: Distribution{Protein: 35, Carbohydrates: 35, Fats: 30}},
		{Name: "Ganancia Muscular", Distribution: Distribution{Protein: 30, Carbohydrates: 50, Fats: 20}},
		{Name: "Cetogénica", Distribution: Distribution{Protein: 25, Carbohydrates: 5, Fats: 70}},
		{Name: "Mediterránea", Distribution: Distribution{Protein: 20, Carbohydrates: 45, Fats: 35}},
		{Name: "Para Diabetes", Distribution: Distribution{Protein: 25, Carbohydrates: 40, Fats: 35}},
	}
}

// FindPreset looks a preset up by name, ignoring case and accents.
func FindPreset(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if textfold.Equal(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

func roundShare(total int, share float64) int {
	return int(math.Round(float64(total) * share))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
