package nutrition

import "github.com/nutriplan/nutriplan/pkg/textfold"

// ActivityLevel is the physical activity category of a patient.
type ActivityLevel string

const (
	ActivityUnknown    ActivityLevel = ""
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// DefaultActivityMultiplier applies when no rule matches the label.
const DefaultActivityMultiplier = 1.2

// ActivityRule maps free-text keywords to a level and its TDEE multiplier.
type ActivityRule struct {
	Level      ActivityLevel `mapstructure:"level" json:"level"`
	Multiplier float64       `mapstructure:"multiplier" json:"multiplier"`
	Keywords   []string      `mapstructure:"keywords" json:"keywords"`
}

// ActivityTable is an ordered rule list. Order matters: "muy activo" must be
// tried before "activo", and "inactivo" or "sin actividad" before "activo".
// Keywords match substrings of the folded label, so the noun "actividad"
// must never be a keyword on its own.
type ActivityTable struct {
	Rules             []ActivityRule `mapstructure:"rules" json:"rules"`
	DefaultMultiplier float64        `mapstructure:"default_multiplier" json:"default_multiplier"`
}

// DefaultActivityTable returns the built-in rules.
func DefaultActivityTable() ActivityTable {
	return ActivityTable{
		Rules: []ActivityRule{
			{ActivityVeryActive, 1.9, []string{"very_active", "very active", "muy activ", "extremadamente activ", "atleta", "athlete", "dos veces al dia"}},
			{ActivitySedentary, 1.2, []string{"sedentar", "inactiv", "ninguna", "ninguno", "no realiza", "no hace", "no practica", "sin actividad", "sin ejercicio", "nada de"}},
			{ActivityLight, 1.375, []string{"light", "liger", "leve", "poco", "ocasional", "1-2", "1 a 2", "camina"}},
			{ActivityModerate, 1.55, []string{"moderad", "moderate", "3-4", "3 a 4", "regular"}},
			{ActivityActive, 1.725, []string{"active", "activo", "activa", "diario", "diaria", "todos los dias", "5-6", "intens", "frecuente"}},
		},
		DefaultMultiplier: DefaultActivityMultiplier,
	}
}

// Lookup returns the level and multiplier for a free-text activity label.
func (t ActivityTable) Lookup(label string) (ActivityLevel, float64) {
	for _, rule := range t.Rules {
		if textfold.ContainsAny(label, rule.Keywords...) {
			return rule.Level, rule.Multiplier
		}
	}
	m := t.DefaultMultiplier
	if m <= 0 {
		m = DefaultActivityMultiplier
	}
	return ActivityUnknown, m
}
