// Package nutrition derives daily nutritional targets from a clinical
// snapshot: calories from a Harris-Benedict estimate scaled by activity and
// diagnosis, a macro split converted to grams, micronutrient guidance, water
// intake and a notes summary.
//
// Every function here is pure. Missing inputs fall back to defaults; nothing
// in this package returns an error.
package nutrition

import (
	"math"

	"github.com/nutriplan/nutriplan/internal/clinical"
)

// Rules holds the tunable tables used by the Deriver.
type Rules struct {
	Activity ActivityTable `mapstructure:"activity" json:"activity"`
	Presets  []Preset      `mapstructure:"presets" json:"presets"`
}

// DefaultRules returns the built-in activity table and presets.
func DefaultRules() Rules {
	return Rules{
		Activity: DefaultActivityTable(),
		Presets:  DefaultPresets(),
	}
}

// Target is the derived nutritional target.
type Target struct {
	DailyCalories      int            `json:"dailyCalories"`
	Distribution       Distribution   `json:"distribution"`
	MacroGramsPerDay   MacroGrams     `json:"macroGramsPerDay"`
	Micronutrients     Micronutrients `json:"micronutrients"`
	WaterGlassesPerDay int            `json:"waterGlassesPerDay"`
	Preset             string         `json:"preset,omitempty"`
	Conditions         Conditions     `json:"conditions"`
	ActivityLevel      ActivityLevel  `json:"activityLevel,omitempty"`
	BMR                float64        `json:"bmr,omitempty"`
	TDEE               int            `json:"tdee,omitempty"`
	DefaultCalories    bool           `json:"defaultCalories"`
	Description        string         `json:"description"`
	Notes              string         `json:"notes"`
}

// Options steer a derivation. The zero value derives everything from the snapshot.
type Options struct {
	// Preset selects a named distribution. Unknown names are ignored.
	Preset string
	// Distribution is an explicit split chosen by the caller; it wins over
	// Preset and is used as given (normalised), without condition caps.
	Distribution *Distribution
	// Calories, when positive, replaces the estimated daily calories.
	Calories int
}

// Estimate is the calorie part of a derivation.
type Estimate struct {
	Calories        int
	BMR             float64
	TDEE            int
	ActivityLevel   ActivityLevel
	Multiplier      float64
	Factor          float64
	DefaultCalories bool
}

// Deriver computes targets with a fixed rule set. It holds no mutable state
// and is safe for concurrent use.
type Deriver struct {
	rules Rules
}

func NewDeriver(rules Rules) *Deriver {
	if len(rules.Activity.Rules) == 0 {
		rules.Activity.Rules = DefaultActivityTable().Rules
	}
	if rules.Activity.DefaultMultiplier <= 0 {
		rules.Activity.DefaultMultiplier = DefaultActivityMultiplier
	}
	if len(rules.Presets) == 0 {
		rules.Presets = DefaultPresets()
	}
	return &Deriver{rules: rules}
}

// Presets returns a copy of the configured presets.
func (d *Deriver) Presets() []Preset {
	out := make([]Preset, len(d.rules.Presets))
	copy(out, d.rules.Presets)
	return out
}

// Preset looks up a configured preset by name.
func (d *Deriver) Preset(name string) (Preset, bool) {
	return FindPreset(d.rules.Presets, name)
}

// EstimateCalories runs BMR → activity → diagnosis. Without weight or height,
// or when the equation yields no positive energy for extreme inputs, it
// returns DefaultCalories and skips every adjustment.
func (d *Deriver) EstimateCalories(s clinical.Snapshot, cs Conditions) Estimate {
	level, mult := d.rules.Activity.Lookup(s.ActivityLevel)
	est := Estimate{ActivityLevel: level, Multiplier: mult, Factor: 1}
	if !s.HasAnthropometrics() {
		return est.fallback()
	}

	age := DefaultAge
	if s.Age != nil && *s.Age > 0 {
		age = *s.Age
	}
	bmr := BasalMetabolicRate(*s.WeightKg, *s.HeightM, age, s.Sex)
	if bmr <= 0 {
		return est.fallback()
	}
	est.BMR = bmr
	est.TDEE = TotalDailyEnergy(bmr, mult)
	est.Factor = CaloricFactor(cs)
	est.Calories = int(math.Round(float64(est.TDEE) * est.Factor))
	if est.Calories <= 0 {
		return est.fallback()
	}
	return est
}

func (e Estimate) fallback() Estimate {
	return Estimate{
		Calories:        DefaultCalories,
		ActivityLevel:   e.ActivityLevel,
		Multiplier:      e.Multiplier,
		Factor:          1,
		DefaultCalories: true,
	}
}

// Derive computes the full target for a snapshot.
func (d *Deriver) Derive(s clinical.Snapshot, opts Options) Target {
	cs := Classify(s.DiagnosisText())
	est := d.EstimateCalories(s, cs)

	calories := est.Calories
	if opts.Calories > 0 {
		calories = opts.Calories
	}

	if cs == nil {
		cs = Conditions{}
	}

	var presetName string
	dist := DefaultDistribution().ForConditions(cs)
	switch {
	case opts.Distribution != nil:
		dist = opts.Distribution.Normalize()
	case opts.Preset != "":
		if p, ok := d.Preset(opts.Preset); ok {
			dist = p.Distribution
			presetName = p.Name
		}
	}

	age := 0
	if s.Age != nil {
		age = *s.Age
	}

	return Target{
		DailyCalories:      calories,
		Distribution:       dist,
		MacroGramsPerDay:   Grams(calories, dist),
		Micronutrients:     RecommendMicronutrients(calories, age, s.Sex, cs),
		WaterGlassesPerDay: WaterGlasses(s.WeightKg),
		Preset:             presetName,
		Conditions:         cs,
		ActivityLevel:      est.ActivityLevel,
		BMR:                math.Round(est.BMR*1000) / 1000,
		TDEE:               est.TDEE,
		DefaultCalories:    est.DefaultCalories && opts.Calories <= 0,
		Description:        Describe(calories, dist, presetName),
		Notes:              Summarize(s, cs),
	}
}
