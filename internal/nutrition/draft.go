package nutrition

import "encoding/json"

// Draft is an immutable diet-plan target under edit. Every With* method
// returns a new Draft with the macro grams recomputed from calories and the
// distribution, so grams can never drift from the other two.
type Draft struct {
	t          Target
	customDesc bool
}

// NewDraft starts a draft from a derived target.
func NewDraft(t Target) Draft {
	d := Draft{t: t}
	d.t.Conditions = t.Conditions.clone()
	d.t.Distribution = d.t.Distribution.Normalize()
	d.t.MacroGramsPerDay = Grams(d.t.DailyCalories, d.t.Distribution)
	return d
}

// Target returns a copy of the current target.
func (d Draft) Target() Target {
	t := d.t
	t.Conditions = d.t.Conditions.clone()
	return t
}

func (d Draft) Calories() int              { return d.t.DailyCalories }
func (d Draft) Distribution() Distribution { return d.t.Distribution }
func (d Draft) Grams() MacroGrams          { return d.t.MacroGramsPerDay }

func (d Draft) WithCalories(kcal int) Draft {
	if kcal < 0 {
		kcal = 0
	}
	n := d.clone()
	n.t.DailyCalories = kcal
	n.t.DefaultCalories = false
	return n.recompute()
}

// WithPreset replaces the distribution with the preset's.
func (d Draft) WithPreset(p Preset) Draft {
	n := d.clone()
	n.t.Distribution = p.Distribution.Normalize()
	n.t.Preset = p.Name
	return n.recompute()
}

// WithDistribution sets all three percentages at once, normalising to 100.
func (d Draft) WithDistribution(dist Distribution) Draft {
	n := d.clone()
	n.t.Distribution = dist.Normalize()
	n.t.Preset = ""
	return n.recompute()
}

// WithMacroPercent is a single slider edit; see Distribution.With.
func (d Draft) WithMacroPercent(axis Axis, pct int) Draft {
	n := d.clone()
	n.t.Distribution = d.t.Distribution.With(axis, pct)
	n.t.Preset = ""
	return n.recompute()
}

func (d Draft) WithMicronutrients(m Micronutrients) Draft {
	n := d.clone()
	n.t.Micronutrients = m
	return n
}

func (d Draft) WithWaterGlasses(glasses int) Draft {
	if glasses < 0 {
		glasses = 0
	}
	n := d.clone()
	n.t.WaterGlassesPerDay = glasses
	return n
}

func (d Draft) WithNotes(notes string) Draft {
	n := d.clone()
	n.t.Notes = notes
	return n
}

func (d Draft) WithDescription(desc string) Draft {
	n := d.clone()
	n.t.Description = desc
	n.customDesc = true
	return n
}

// Payload is the submission shape expected by the diet-plan API.
type Payload struct {
	DailyCaloriesTarget int        `json:"dailyCaloriesTarget"`
	DailyMacrosTarget   MacroGrams `json:"dailyMacrosTarget"`
}

func (d Draft) Payload() Payload {
	return PayloadFor(d.t.DailyCalories, d.t.Distribution)
}

// PayloadFor builds the payload straight from calories and a distribution.
func PayloadFor(calories int, dist Distribution) Payload {
	return Payload{DailyCaloriesTarget: calories, DailyMacrosTarget: Grams(calories, dist)}
}

func (d Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.t)
}

func (d Draft) clone() Draft {
	return Draft{t: d.Target(), customDesc: d.customDesc}
}

func (d Draft) recompute() Draft {
	d.t.MacroGramsPerDay = Grams(d.t.DailyCalories, d.t.Distribution)
	if !d.customDesc {
		d.t.Description = Describe(d.t.DailyCalories, d.t.Distribution, d.t.Preset)
	}
	return d
}
