// Package integrity finds and repairs stored records that break the
// invariants the services maintain on write: distributions summing to 100,
// macro grams derived from calories, one active plan per patient, and
// plausible anthropometrics.
package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/domain/dietplan"
	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

type Kind string

const (
	KindDistributionSum  Kind = "distribution_sum"
	KindMacroGrams       Kind = "macro_grams"
	KindCaloriesMissing  Kind = "calories_missing"
	KindOrphanPlan       Kind = "orphan_plan"
	KindMultipleActive   Kind = "multiple_active"
	KindHeightUnit       Kind = clinical.CorrectionHeightUnit
	KindImplausibleValue Kind = clinical.CorrectionImplausibleValue
)

const (
	EntityPatient  = "patient"
	EntityDietPlan = "diet_plan"
)

type Issue struct {
	Kind      Kind      `json:"kind"`
	Entity    string    `json:"entity"`
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Detail    string    `json:"detail"`
	Fixed     bool      `json:"fixed"`
}

type Report struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Repair          bool      `json:"repair"`
	DryRun          bool      `json:"dry_run"`
	PatientsScanned int       `json:"patients_scanned"`
	PlansScanned    int       `json:"plans_scanned"`
	Issues          []Issue   `json:"issues"`
	Fixed           int       `json:"fixed"`
}

const defaultPageSize = 200

type Checker struct {
	patients patient.Repository
	plans    dietplan.Repository
	deriver  *nutrition.Deriver
	tx       db.TxRunner
	logger   zerolog.Logger
	pageSize int
	now      func() time.Time
}

func NewChecker(patients patient.Repository, plans dietplan.Repository, deriver *nutrition.Deriver, tx db.TxRunner, logger zerolog.Logger) *Checker {
	if tx == nil {
		tx = db.NopTxRunner{}
	}
	return &Checker{
		patients: patients,
		plans:    plans,
		deriver:  deriver,
		tx:       tx,
		logger:   logger.With().Str("component", "integrity").Logger(),
		pageSize: defaultPageSize,
		now:      time.Now,
	}
}

// Scan reports issues without writing anything.
func (c *Checker) Scan(ctx context.Context) (*Report, error) {
	return c.run(ctx, false, false)
}

// Repair fixes every issue found, in one transaction. With dryRun the fixes
// are computed but not written and no issue is marked fixed.
func (c *Checker) Repair(ctx context.Context, dryRun bool) (*Report, error) {
	return c.run(ctx, true, dryRun)
}

func (c *Checker) run(ctx context.Context, repair, dryRun bool) (*Report, error) {
	report := &Report{StartedAt: c.now(), Repair: repair, DryRun: dryRun, Issues: []Issue{}}

	patients, plans, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	report.PatientsScanned = len(patients)
	report.PlansScanned = len(plans)

	byID := make(map[uuid.UUID]*patient.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	patientFixes := c.checkPatients(patients, report)
	planFixes := c.checkPlans(plans, byID, report)

	if repair && !dryRun && (len(patientFixes) > 0 || len(planFixes) > 0) {
		err := c.tx.InTx(ctx, func(ctx context.Context) error {
			for _, p := range patientFixes {
				if err := c.patients.Update(ctx, p); err != nil {
					return fmt.Errorf("repair patient %s: %w", p.ID, err)
				}
			}
			for _, p := range planFixes {
				if err := c.plans.Update(ctx, p); err != nil {
					return fmt.Errorf("repair diet plan %s: %w", p.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if repair && !dryRun {
		for i := range report.Issues {
			report.Issues[i].Fixed = true
		}
		report.Fixed = len(report.Issues)
	}

	report.FinishedAt = c.now()
	c.logger.Info().
		Bool("repair", repair).
		Bool("dry_run", dryRun).
		Int("patients", report.PatientsScanned).
		Int("plans", report.PlansScanned).
		Int("issues", len(report.Issues)).
		Int("fixed", report.Fixed).
		Msg("integrity check finished")
	return report, nil
}

// load reads both tables concurrently, page by page.
func (c *Checker) load(ctx context.Context) ([]*patient.Patient, []*dietplan.DietPlan, error) {
	var (
		patients []*patient.Patient
		plans    []*dietplan.DietPlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patients, err = loadAll(gctx, c.pageSize, c.patients.List)
		if err != nil {
			return fmt.Errorf("load patients: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		plans, err = loadAll(gctx, c.pageSize, c.plans.List)
		if err != nil {
			return fmt.Errorf("load diet plans: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return patients, plans, nil
}

func loadAll[T any](ctx context.Context, pageSize int, list func(context.Context, int, int) ([]T, int, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += pageSize {
		page, total, err := list(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || offset+len(page) >= total {
			return all, nil
		}
	}
}

func (c *Checker) checkPatients(patients []*patient.Patient, report *Report) []*patient.Patient {
	var fixes []*patient.Patient
	for _, p := range patients {
		fixed, corrections := clinical.Normalize(p.Clinical)
		if len(corrections) == 0 {
			continue
		}
		for _, corr := range corrections {
			c.add(report, Issue{
				Kind:      Kind(corr.Kind),
				Entity:    EntityPatient,
				ID:        p.ID,
				PatientID: p.ID,
				Detail:    corr.Field + ": " + corr.Detail,
			})
		}
		cp := *p
		cp.Clinical = fixed
		fixes = append(fixes, &cp)
	}
	return fixes
}

func (c *Checker) checkPlans(plans []*dietplan.DietPlan, patients map[uuid.UUID]*patient.Patient, report *Report) []*dietplan.DietPlan {
	changed := make(map[uuid.UUID]*dietplan.DietPlan)
	var order []uuid.UUID
	fix := func(p *dietplan.DietPlan) *dietplan.DietPlan {
		if cp, ok := changed[p.ID]; ok {
			return cp
		}
		cp := *p
		changed[p.ID] = &cp
		order = append(order, p.ID)
		return &cp
	}

	newestActive := make(map[uuid.UUID]*dietplan.DietPlan)
	for _, p := range plans {
		owner, ok := patients[p.PatientID]
		if !ok && p.Status != dietplan.StatusArchived {
			c.add(report, planIssue(p, KindOrphanPlan, fmt.Sprintf("patient %s does not exist", p.PatientID)))
			fix(p).Status = dietplan.StatusArchived
		}

		calories := p.DailyCalories
		if calories <= 0 {
			calories = nutrition.DefaultCalories
			if ok {
				snapshot, _ := clinical.Normalize(owner.Snapshot(c.now()))
				calories = c.deriver.Derive(snapshot, nutrition.Options{}).DailyCalories
			}
			c.add(report, planIssue(p, KindCaloriesMissing,
				fmt.Sprintf("daily calories %d, re-derived as %d", p.DailyCalories, calories)))
			fix(p).DailyCalories = calories
		}

		dist := p.Distribution
		if !dist.Valid() {
			dist = dist.Normalize()
			c.add(report, planIssue(p, KindDistributionSum,
				fmt.Sprintf("distribution %s sums to %d, normalised to %s", p.Distribution, p.Distribution.Sum(), dist)))
			fix(p).Distribution = dist
		}

		if grams := nutrition.Grams(calories, dist); grams != p.MacroGrams {
			c.add(report, planIssue(p, KindMacroGrams,
				fmt.Sprintf("grams %d/%d/%d, expected %d/%d/%d",
					p.MacroGrams.Protein, p.MacroGrams.Carbohydrates, p.MacroGrams.Fats,
					grams.Protein, grams.Carbohydrates, grams.Fats)))
			fix(p).MacroGrams = grams
		}

		if ok && p.Status == dietplan.StatusActive {
			if cur, seen := newestActive[p.PatientID]; !seen || p.CreatedAt.After(cur.CreatedAt) {
				newestActive[p.PatientID] = p
			}
		}
	}

	for _, p := range plans {
		keep, ok := newestActive[p.PatientID]
		if !ok || p.Status != dietplan.StatusActive || keep.ID == p.ID {
			continue
		}
		c.add(report, planIssue(p, KindMultipleActive, fmt.Sprintf("plan %s is newer and stays active", keep.ID)))
		fix(p).Status = dietplan.StatusArchived
	}

	fixes := make([]*dietplan.DietPlan, 0, len(order))
	for _, id := range order {
		fixes = append(fixes, changed[id])
	}
	return fixes
}

func planIssue(p *dietplan.DietPlan, kind Kind, detail string) Issue {
	return Issue{Kind: kind, Entity: EntityDietPlan, ID: p.ID, PatientID: p.PatientID, Detail: detail}
}

func (c *Checker) add(report *Report, issue Issue) {
	c.logger.Debug().
		Str("kind", string(issue.Kind)).
		Str("entity", issue.Entity).
		Str("id", issue.ID.String()).
		Msg(issue.Detail)
	report.Issues = append(report.Issues, issue)
}
