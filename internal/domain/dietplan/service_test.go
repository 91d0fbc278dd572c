package dietplan

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
)

type mockPlanRepo struct {
	plans map[uuid.UUID]*DietPlan
	seq   int
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[uuid.UUID]*DietPlan)}
}

func (m *mockPlanRepo) Create(_ context.Context, p *DietPlan) error {
	m.seq++
	p.ID = uuid.New()
	p.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id uuid.UUID) (*DietPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlanRepo) Update(_ context.Context, p *DietPlan) error {
	if _, ok := m.plans[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.plans[id]; !ok {
		return ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

func (m *mockPlanRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*DietPlan, int, error) {
	return m.page(func(p *DietPlan) bool { return p.PatientID == patientID }, limit, offset)
}

func (m *mockPlanRepo) List(_ context.Context, limit, offset int) ([]*DietPlan, int, error) {
	return m.page(func(*DietPlan) bool { return true }, limit, offset)
}

func (m *mockPlanRepo) page(match func(*DietPlan) bool, limit, offset int) ([]*DietPlan, int, error) {
	var result []*DietPlan
	for _, p := range m.plans {
		if match(p) {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := len(result)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

func (m *mockPlanRepo) ArchiveActive(_ context.Context, patientID, keep uuid.UUID) (int, error) {
	n := 0
	for _, p := range m.plans {
		if p.PatientID == patientID && p.Status == StatusActive && p.ID != keep {
			p.Status = StatusArchived
			n++
		}
	}
	return n, nil
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// referencePatient is 85 kg, 1.75 m, 40 years old, male, moderately active
// and overweight: 2424 kcal with the default rules.
func referencePatient() *patient.Patient {
	return &patient.Patient{
		ID:        uuid.New(),
		FirstName: "Carlos",
		LastName:  "Ruiz",
		BirthDate: patient.NewDate(1984, time.June, 1),
		Sex:       clinical.SexMale,
		Active:    true,
		Clinical: clinical.Snapshot{
			WeightKg:      clinical.Float(85),
			HeightM:       clinical.Float(1.75),
			ActivityLevel: "moderado",
			Diagnosis:     "Sobrepeso",
		},
	}
}

func newTestService() (*Service, *mockPlanRepo, *patient.Patient) {
	p := referencePatient()
	repo := newMockPlanRepo()
	svc := NewService(repo, &mockPatients{patients: map[uuid.UUID]*patient.Patient{p.ID: p}},
		nutrition.NewDeriver(nutrition.DefaultRules()), nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, p
}

func TestService_Suggest(t *testing.T) {
	svc, _, p := newTestService()

	draft, err := svc.Suggest(context.Background(), p.ID, nutrition.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Calories() != 2424 {
		t.Errorf("expected 2424 kcal for the reference patient, got %d", draft.Calories())
	}
	if g := draft.Grams(); g != (nutrition.MacroGrams{Protein: 182, Carbohydrates: 273, Fats: 67}) {
		t.Errorf("unexpected grams: %+v", g)
	}

	draft, _ = svc.Suggest(context.Background(), p.ID, nutrition.Options{Preset: "cetogenica", Calories: 2000})
	if g := draft.Grams(); g != (nutrition.MacroGrams{Protein: 125, Carbohydrates: 25, Fats: 156}) {
		t.Errorf("unexpected ketogenic grams: %+v", g)
	}
}

func TestService_Suggest_UnknownPatient(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Suggest(context.Background(), uuid.New(), nutrition.Options{})
	if !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected patient.ErrNotFound, got %v", err)
	}
}

func TestService_Suggest_UnknownPreset(t *testing.T) {
	svc, _, p := newTestService()
	_, err := svc.Suggest(context.Background(), p.ID, nutrition.Options{Preset: "Carnívora"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for an unknown preset, got %v", err)
	}
}

func TestService_CreatePlan_FillsFromTarget(t *testing.T) {
	svc, _, p := newTestService()

	plan := &DietPlan{PatientID: p.ID, Name: " Plan inicial "}
	if err := svc.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "Plan inicial" {
		t.Errorf("expected trimmed name, got %q", plan.Name)
	}
	if plan.Status != StatusDraft {
		t.Errorf("expected draft status, got %q", plan.Status)
	}
	if plan.DailyCalories != 2424 {
		t.Errorf("expected derived calories 2424, got %d", plan.DailyCalories)
	}
	if plan.Distribution != nutrition.DefaultDistribution() {
		t.Errorf("expected default distribution, got %s", plan.Distribution)
	}
	if plan.WaterGlasses != 12 || plan.Micronutrients.Fiber != 34 {
		t.Errorf("expected derived water and micronutrients, got %d / %+v", plan.WaterGlasses, plan.Micronutrients)
	}
	if plan.Description == "" || plan.Notes == "" {
		t.Error("expected description and notes to be filled")
	}
}

func TestService_CreatePlan_RecomputesGrams(t *testing.T) {
	svc, _, p := newTestService()

	plan := &DietPlan{
		PatientID:     p.ID,
		Name:          "Manual",
		DailyCalories: 1800,
		Distribution:  nutrition.Distribution{Protein: 50, Carbohydrates: 50, Fats: 50},
		MacroGrams:    nutrition.MacroGrams{Protein: 1, Carbohydrates: 1, Fats: 1},
		Preset:        "Equilibrada",
	}
	if err := svc.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Distribution != (nutrition.Distribution{Protein: 34, Carbohydrates: 33, Fats: 33}) {
		t.Errorf("expected normalised distribution, got %s", plan.Distribution)
	}
	if plan.MacroGrams != nutrition.Grams(1800, plan.Distribution) {
		t.Errorf("expected grams recomputed from calories, got %+v", plan.MacroGrams)
	}
	if plan.Preset != "" {
		t.Errorf("expected preset label dropped when it no longer matches, got %q", plan.Preset)
	}
}

func TestService_CreatePlan_Preset(t *testing.T) {
	svc, _, p := newTestService()

	plan := &DietPlan{PatientID: p.ID, Name: "Keto", Preset: "CETOGENICA", DailyCalories: 2000}
	if err := svc.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Preset != "Cetogénica" {
		t.Errorf("expected canonical preset name, got %q", plan.Preset)
	}
	if plan.MacroGrams != (nutrition.MacroGrams{Protein: 125, Carbohydrates: 25, Fats: 156}) {
		t.Errorf("unexpected grams: %+v", plan.MacroGrams)
	}

	bad := &DietPlan{PatientID: p.ID, Name: "X", Preset: "Paleo"}
	if err := svc.CreatePlan(context.Background(), bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for an unknown preset, got %v", err)
	}
}

func TestService_CreatePlan_Validation(t *testing.T) {
	svc, _, p := newTestService()
	tests := []struct {
		name string
		plan *DietPlan
		want error
	}{
		{"missing patient", &DietPlan{Name: "A"}, ErrInvalid},
		{"unknown patient", &DietPlan{PatientID: uuid.New(), Name: "A"}, patient.ErrNotFound},
		{"missing name", &DietPlan{PatientID: p.ID}, ErrInvalid},
		{"bad status", &DietPlan{PatientID: p.ID, Name: "A", Status: "paused"}, ErrInvalid},
		{"negative calories", &DietPlan{PatientID: p.ID, Name: "A", DailyCalories: -1}, ErrInvalid},
		{"end before start", &DietPlan{PatientID: p.ID, Name: "A",
			StartDate: patient.NewDate(2025, 2, 1), EndDate: patient.NewDate(2025, 1, 1)}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreatePlan(context.Background(), tt.plan); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_SingleActivePlan(t *testing.T) {
	svc, repo, p := newTestService()
	ctx := context.Background()

	first := &DietPlan{PatientID: p.ID, Name: "Primero", Status: StatusActive}
	if err := svc.CreatePlan(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &DietPlan{PatientID: p.ID, Name: "Segundo", Status: StatusActive}
	if err := svc.CreatePlan(ctx, second); err != nil {
		t.Fatal(err)
	}
	if repo.plans[first.ID].Status != StatusArchived {
		t.Errorf("expected first plan archived, got %q", repo.plans[first.ID].Status)
	}

	activated, err := svc.ActivatePlan(ctx, first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activated.Status != StatusActive {
		t.Errorf("expected active, got %q", activated.Status)
	}
	if repo.plans[second.ID].Status != StatusArchived {
		t.Errorf("expected second plan archived after activating the first, got %q", repo.plans[second.ID].Status)
	}
}

func TestService_UpdatePlan(t *testing.T) {
	svc, _, p := newTestService()
	ctx := context.Background()

	plan := &DietPlan{PatientID: p.ID, Name: "Plan"}
	if err := svc.CreatePlan(ctx, plan); err != nil {
		t.Fatal(err)
	}

	update := &DietPlan{
		ID:            plan.ID,
		PatientID:     uuid.New(),
		Name:          "Plan ajustado",
		DailyCalories: 2000,
		Distribution:  nutrition.Distribution{Protein: 30, Carbohydrates: 40, Fats: 30},
	}
	if err := svc.UpdatePlan(ctx, update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.PatientID != p.ID {
		t.Error("expected the owning patient to be kept")
	}
	if update.Status != StatusDraft {
		t.Errorf("expected status kept as draft, got %q", update.Status)
	}
	if update.MacroGrams != (nutrition.MacroGrams{Protein: 150, Carbohydrates: 200, Fats: 67}) {
		t.Errorf("unexpected grams: %+v", update.MacroGrams)
	}

	if err := svc.UpdatePlan(ctx, &DietPlan{ID: uuid.New(), Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Payload(t *testing.T) {
	svc, _, p := newTestService()
	plan := &DietPlan{PatientID: p.ID, Name: "Keto", Preset: "Cetogénica", DailyCalories: 2000}
	if err := svc.CreatePlan(context.Background(), plan); err != nil {
		t.Fatal(err)
	}

	payload, err := svc.Payload(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.DailyCaloriesTarget != 2000 || payload.DailyMacrosTarget.Fats != 156 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestService_ListByPatient(t *testing.T) {
	svc, _, p := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Uno", "Dos", "Tres"} {
		if err := svc.CreatePlan(ctx, &DietPlan{PatientID: p.ID, Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	plans, total, err := svc.ListByPatient(ctx, p.ID, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(plans) != 2 {
		t.Errorf("expected 2 of 3, got %d of %d", len(plans), total)
	}
	if plans[0].Name != "Tres" {
		t.Errorf("expected newest first, got %s", plans[0].Name)
	}

	if _, _, err := svc.ListByPatient(ctx, uuid.New(), 10, 0); !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected patient.ErrNotFound, got %v", err)
	}
}
