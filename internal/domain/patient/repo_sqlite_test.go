package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

func newSQLiteRepo(t *testing.T) Repository {
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
	return NewRepoSQLite(conn)
}

func TestRepoSQLite_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	email := "ana@example.com"
	p := &Patient{
		FirstName: "Ana",
		LastName:  "Pérez",
		Email:     &email,
		BirthDate: NewDate(1985, 6, 15),
		Sex:       clinical.SexFemale,
		Active:    true,
		Clinical: clinical.Snapshot{
			WeightKg:      clinical.Float(62.5),
			HeightM:       clinical.Float(1.6),
			ActivityLevel: "moderado",
		},
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName() != "Ana Pérez" || *got.Email != email || !got.Active {
		t.Errorf("unexpected patient: %+v", got)
	}
	if got.BirthDate == nil || got.BirthDate.Format("2006-01-02") != "1985-06-15" {
		t.Errorf("expected birth date to survive, got %v", got.BirthDate)
	}
	if got.Phone != nil {
		t.Errorf("expected nil phone, got %v", *got.Phone)
	}
	if *got.Clinical.WeightKg != 62.5 || got.Clinical.ActivityLevel != "moderado" {
		t.Errorf("expected snapshot to survive, got %+v", got.Clinical)
	}

	got.Clinical.WeightKg = clinical.Float(60)
	got.Active = false
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.GetByID(ctx, p.ID)
	if *again.Clinical.WeightKg != 60 || again.Active {
		t.Errorf("expected update to persist, got %+v", again)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := repo.Update(ctx, &Patient{ID: uuid.New()}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating a missing patient, got %v", err)
	}
}

func TestRepoSQLite_ListAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	for _, n := range [][2]string{{"Ana", "Pérez"}, {"Luis", "Gómez"}, {"Mariana", "Ruiz"}} {
		if err := repo.Create(ctx, &Patient{FirstName: n[0], LastName: n[1], Active: true}); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("expected 2 of 3, got %d of %d", len(page), total)
	}
	if page[0].LastName != "Gómez" {
		t.Errorf("expected ordering by last name, got %s first", page[0].LastName)
	}

	found, total, err := repo.Search(ctx, "ANA", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(found) != 2 {
		t.Errorf("expected Ana and Mariana, got %d", total)
	}

	found, total, _ = repo.Search(ctx, "luis gómez", 10, 0)
	if total != 1 || found[0].FirstName != "Luis" {
		t.Errorf("expected full-name match, got %d", total)
	}
}
