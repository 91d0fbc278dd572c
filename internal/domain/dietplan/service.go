package dietplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

// ErrInvalid marks input the service refused; handlers answer 400.
var ErrInvalid = errors.New("invalid diet plan")

// PatientSource is the part of the patient service diet plans depend on.
type PatientSource interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	plans    Repository
	patients PatientSource
	deriver  *nutrition.Deriver
	tx       db.TxRunner
	now      func() time.Time
}

func NewService(plans Repository, patients PatientSource, deriver *nutrition.Deriver, tx db.TxRunner) *Service {
	if tx == nil {
		tx = db.NopTxRunner{}
	}
	return &Service{plans: plans, patients: patients, deriver: deriver, tx: tx, now: time.Now}
}

// SuggestRequest carries the optional overrides for a suggestion.
type SuggestRequest struct {
	Preset       string                  `json:"preset"`
	Distribution *nutrition.Distribution `json:"distribution"`
	Calories     int                     `json:"calories"`
}

func (r SuggestRequest) Options() nutrition.Options {
	return nutrition.Options{Preset: r.Preset, Distribution: r.Distribution, Calories: r.Calories}
}

// Suggest derives a draft target from the patient's stored clinical snapshot.
func (s *Service) Suggest(ctx context.Context, patientID uuid.UUID, opts nutrition.Options) (nutrition.Draft, error) {
	if err := CheckPreset(s.deriver, opts.Preset); err != nil {
		return nutrition.Draft{}, err
	}
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nutrition.Draft{}, err
	}
	return nutrition.NewDraft(s.deriver.Derive(p.Snapshot(s.now()), opts)), nil
}

// CheckPreset rejects a preset name the deriver does not know. An empty name
// is accepted.
func CheckPreset(d *nutrition.Deriver, name string) error {
	if name == "" {
		return nil
	}
	if _, ok := d.Preset(name); !ok {
		return fmt.Errorf("%w: unknown preset %q", ErrInvalid, name)
	}
	return nil
}

// CreatePlan validates the plan, fills whatever the caller left out from the
// patient's derived target and stores it. Creating an active plan archives
// the patient's previous active plan in the same transaction.
func (s *Service) CreatePlan(ctx context.Context, plan *DietPlan) error {
	if plan.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrInvalid)
	}
	pat, err := s.patients.GetPatient(ctx, plan.PatientID)
	if err != nil {
		return err
	}
	if plan.Status == "" {
		plan.Status = StatusDraft
	}
	if err := s.prepare(plan, pat); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.plans.Create(ctx, plan); err != nil {
			return fmt.Errorf("create diet plan: %w", err)
		}
		return s.archiveOthers(ctx, plan)
	})
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*DietPlan, error) {
	return s.plans.GetByID(ctx, id)
}

// UpdatePlan replaces the editable fields. The owning patient cannot change.
func (s *Service) UpdatePlan(ctx context.Context, plan *DietPlan) error {
	existing, err := s.plans.GetByID(ctx, plan.ID)
	if err != nil {
		return err
	}
	plan.PatientID = existing.PatientID
	plan.CreatedAt = existing.CreatedAt
	if plan.Status == "" {
		plan.Status = existing.Status
	}
	pat, err := s.patients.GetPatient(ctx, plan.PatientID)
	if err != nil {
		return err
	}
	if err := s.prepare(plan, pat); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.plans.Update(ctx, plan); err != nil {
			return err
		}
		return s.archiveOthers(ctx, plan)
	})
}

// ActivatePlan makes the plan the patient's only active plan.
func (s *Service) ActivatePlan(ctx context.Context, id uuid.UUID) (*DietPlan, error) {
	var plan *DietPlan
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if plan, err = s.plans.GetByID(ctx, id); err != nil {
			return err
		}
		plan.Status = StatusActive
		if err := s.plans.Update(ctx, plan); err != nil {
			return err
		}
		return s.archiveOthers(ctx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	return s.plans.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DietPlan, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.plans.ListByPatient(ctx, patientID, limit, offset)
}

// Payload returns the submission shape of a stored plan.
func (s *Service) Payload(ctx context.Context, id uuid.UUID) (nutrition.Payload, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nutrition.Payload{}, err
	}
	return plan.Payload(), nil
}

func (s *Service) archiveOthers(ctx context.Context, plan *DietPlan) error {
	if plan.Status != StatusActive {
		return nil
	}
	if _, err := s.plans.ArchiveActive(ctx, plan.PatientID, plan.ID); err != nil {
		return fmt.Errorf("archive previous active plans: %w", err)
	}
	return nil
}

// prepare validates plan and fills the gaps from the patient's derived
// target. Macro grams are always recomputed.
func (s *Service) prepare(plan *DietPlan, pat *patient.Patient) error {
	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !plan.Status.Valid() {
		return fmt.Errorf("%w: status must be draft, active or archived, got %q", ErrInvalid, plan.Status)
	}
	if plan.StartDate != nil && plan.EndDate != nil && plan.EndDate.Before(plan.StartDate.Time) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalid)
	}
	if plan.DailyCalories < 0 {
		return fmt.Errorf("%w: daily_calories must not be negative", ErrInvalid)
	}
	if plan.WaterGlasses < 0 {
		return fmt.Errorf("%w: water_glasses must not be negative", ErrInvalid)
	}

	target := s.deriver.Derive(pat.Snapshot(s.now()), nutrition.Options{Calories: plan.DailyCalories})
	if plan.DailyCalories == 0 {
		plan.DailyCalories = target.DailyCalories
	}

	switch {
	case plan.Distribution.Sum() == 0 && plan.Preset != "":
		p, ok := s.deriver.Preset(plan.Preset)
		if !ok {
			return fmt.Errorf("%w: unknown preset %q", ErrInvalid, plan.Preset)
		}
		plan.Distribution = p.Distribution
		plan.Preset = p.Name
	case plan.Distribution.Sum() == 0:
		plan.Distribution = target.Distribution
	default:
		plan.Distribution = plan.Distribution.Normalize()
		if p, ok := s.deriver.Preset(plan.Preset); !ok || p.Distribution != plan.Distribution {
			plan.Preset = ""
		} else {
			plan.Preset = p.Name
		}
	}
	plan.MacroGrams = nutrition.Grams(plan.DailyCalories, plan.Distribution)

	if plan.Micronutrients == (nutrition.Micronutrients{}) {
		plan.Micronutrients = target.Micronutrients
	}
	if plan.WaterGlasses == 0 {
		plan.WaterGlasses = target.WaterGlassesPerDay
	}
	plan.Description = strings.TrimSpace(plan.Description)
	if plan.Description == "" {
		plan.Description = nutrition.Describe(plan.DailyCalories, plan.Distribution, plan.Preset)
	}
	if strings.TrimSpace(plan.Notes) == "" {
		plan.Notes = target.Notes
	}
	return nil
}
