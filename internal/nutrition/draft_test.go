package nutrition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_EditsDoNotMutateOriginal(t *testing.T) {
	target := NewDeriver(DefaultRules()).Derive(overweightMale(), Options{})
	original := NewDraft(target)

	edited := original.WithMacroPercent(AxisProtein, 40)

	assert.Equal(t, DefaultDistribution(), original.Distribution())
	assert.Equal(t, Grams(2424, DefaultDistribution()), original.Grams())
	assert.Equal(t, Distribution{Protein: 40, Carbohydrates: 36, Fats: 24}, edited.Distribution())
	assert.Equal(t, Grams(2424, edited.Distribution()), edited.Grams())
}

func TestDraft_GramsFollowCaloriesAndDistribution(t *testing.T) {
	d := NewDraft(Target{DailyCalories: 1800, Distribution: DefaultDistribution()})

	d = d.WithCalories(2000)
	assert.Equal(t, MacroGrams{Protein: 150, Carbohydrates: 225, Fats: 56}, d.Grams())

	keto, ok := FindPreset(DefaultPresets(), "cetogenica")
	require.True(t, ok)
	d = d.WithPreset(keto)
	assert.Equal(t, MacroGrams{Protein: 125, Carbohydrates: 25, Fats: 156}, d.Grams())
	assert.Equal(t, "Cetogénica", d.Target().Preset)

	d = d.WithDistribution(Distribution{Protein: 1, Carbohydrates: 1, Fats: 2})
	assert.Equal(t, Distribution{Protein: 25, Carbohydrates: 25, Fats: 50}, d.Distribution())
	assert.Empty(t, d.Target().Preset)

	d = d.WithCalories(-100)
	assert.Zero(t, d.Calories())
	assert.Equal(t, MacroGrams{}, d.Grams())
}

func TestDraft_CustomDescriptionSurvivesRecompute(t *testing.T) {
	d := NewDraft(Target{DailyCalories: 2000, Distribution: DefaultDistribution()})

	d = d.WithCalories(2100)
	assert.Contains(t, d.Target().Description, "2100 kcal")

	d = d.WithDescription("Plan de control glucémico").WithCalories(1900)
	assert.Equal(t, "Plan de control glucémico", d.Target().Description)
}

func TestDraft_TargetIsACopy(t *testing.T) {
	d := NewDraft(Target{DailyCalories: 2000, Conditions: Conditions{ConditionDiabetes}})

	got := d.Target()
	got.Conditions[0] = ConditionRenal

	assert.Equal(t, Conditions{ConditionDiabetes}, d.Target().Conditions)
}

func TestDraft_Payload(t *testing.T) {
	d := NewDraft(Target{DailyCalories: 2000, Distribution: Distribution{Protein: 25, Carbohydrates: 5, Fats: 70}})

	raw, err := json.Marshal(d.Payload())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"dailyCaloriesTarget":2000,"dailyMacrosTarget":{"protein":125,"carbohydrates":25,"fats":156}}`,
		string(raw))

	assert.Equal(t, d.Payload(), PayloadFor(2000, d.Distribution()))
}

func TestDraft_SmallFieldEdits(t *testing.T) {
	d := NewDraft(Target{DailyCalories: 2000}).
		WithWaterGlasses(-3).
		WithNotes("revisar en 4 semanas").
		WithMicronutrients(Micronutrients{Fiber: 30})

	got := d.Target()
	assert.Zero(t, got.WaterGlassesPerDay)
	assert.Equal(t, "revisar en 4 semanas", got.Notes)
	assert.Equal(t, 30, got.Micronutrients.Fiber)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dailyCalories":2000`)
}
