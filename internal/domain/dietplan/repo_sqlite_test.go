package dietplan

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

func newSQLiteRepo(t *testing.T) (Repository, db.TxRunner) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := db.NewMigrator(db.NewSQLiteExecutor(conn), "../../../migrations/sqlite").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepoSQLite(conn), db.NewSQLTxRunner(conn)
}

func samplePlan(patientID uuid.UUID, name string, status Status) *DietPlan {
	dist := nutrition.Distribution{Protein: 25, Carbohydrates: 5, Fats: 70}
	return &DietPlan{
		PatientID:      patientID,
		Name:           name,
		Status:         status,
		Preset:         "Cetogénica",
		StartDate:      patient.NewDate(2025, 3, 1),
		DailyCalories:  2000,
		Distribution:   dist,
		MacroGrams:     nutrition.Grams(2000, dist),
		Micronutrients: nutrition.Micronutrients{Fiber: 28, Sodium: 2300},
		WaterGlasses:   8,
	}
}

func TestRepoSQLite_CRUD(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)
	patientID := uuid.New()

	plan := samplePlan(patientID, "Keto", StatusDraft)
	if err := repo.Create(ctx, plan); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PatientID != patientID || got.Status != StatusDraft || got.Preset != "Cetogénica" {
		t.Errorf("unexpected plan: %+v", got)
	}
	if got.MacroGrams != (nutrition.MacroGrams{Protein: 125, Carbohydrates: 25, Fats: 156}) {
		t.Errorf("unexpected grams: %+v", got.MacroGrams)
	}
	if got.Micronutrients.Fiber != 28 || got.EndDate != nil {
		t.Errorf("unexpected micronutrients or end date: %+v / %v", got.Micronutrients, got.EndDate)
	}
	if got.StartDate.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("unexpected start date %v", got.StartDate)
	}

	got.DailyCalories = 1800
	got.EndDate = patient.NewDate(2025, 6, 1)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.GetByID(ctx, plan.ID)
	if again.DailyCalories != 1800 || again.EndDate == nil {
		t.Errorf("expected update to persist, got %+v", again)
	}

	if err := repo.Delete(ctx, plan.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, plan.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepoSQLite_ArchiveActiveInTx(t *testing.T) {
	ctx := context.Background()
	repo, tx := newSQLiteRepo(t)
	patientID, other := uuid.New(), uuid.New()

	old := samplePlan(patientID, "Viejo", StatusActive)
	keep := samplePlan(patientID, "Nuevo", StatusActive)
	foreign := samplePlan(other, "Ajeno", StatusActive)
	for _, p := range []*DietPlan{old, keep, foreign} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	var archived int
	err := tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		archived, err = repo.ArchiveActive(ctx, patientID, keep.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ArchiveActive: %v", err)
	}
	if archived != 1 {
		t.Errorf("expected 1 archived plan, got %d", archived)
	}

	plans, total, err := repo.ListByPatient(ctx, patientID, 10, 0)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if total != 2 || plans[0].Name != "Nuevo" {
		t.Fatalf("expected newest first, got %d plans", total)
	}
	if plans[0].Status != StatusActive || plans[1].Status != StatusArchived {
		t.Errorf("unexpected statuses: %s, %s", plans[0].Status, plans[1].Status)
	}
	if f, _ := repo.GetByID(ctx, foreign.ID); f.Status != StatusActive {
		t.Error("expected another patient's plan to stay active")
	}

	_, total, _ = repo.List(ctx, 10, 0)
	if total != 3 {
		t.Errorf("expected 3 plans overall, got %d", total)
	}
}

func TestRepoSQLite_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	repo, tx := newSQLiteRepo(t)

	boom := errors.New("boom")
	err := tx.InTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, samplePlan(uuid.New(), "Temporal", StatusDraft)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, total, _ := repo.List(ctx, 10, 0); total != 0 {
		t.Errorf("expected rollback to discard the plan, got %d", total)
	}
}
