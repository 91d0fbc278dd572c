package dietplan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const planCols = `id, patient_id, name, description, notes, preset, status, start_date, end_date,
	daily_calories, protein_pct, carbohydrates_pct, fats_pct, protein_g, carbohydrates_g, fats_g,
	micronutrients, water_glasses, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *DietPlan) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diet_plan (`+planCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		p.ID, p.PatientID, p.Name, p.Description, p.Notes, p.Preset, string(p.Status),
		patient.DateTime(p.StartDate), patient.DateTime(p.EndDate),
		p.DailyCalories, p.Distribution.Protein, p.Distribution.Carbohydrates, p.Distribution.Fats,
		p.MacroGrams.Protein, p.MacroGrams.Carbohydrates, p.MacroGrams.Fats,
		p.Micronutrients, p.WaterGlasses, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DietPlan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM diet_plan WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *DietPlan) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE diet_plan SET
			patient_id=$2, name=$3, description=$4, notes=$5, preset=$6, status=$7,
			start_date=$8, end_date=$9, daily_calories=$10,
			protein_pct=$11, carbohydrates_pct=$12, fats_pct=$13,
			protein_g=$14, carbohydrates_g=$15, fats_g=$16,
			micronutrients=$17, water_glasses=$18, updated_at=$19
		WHERE id = $1`,
		p.ID, p.PatientID, p.Name, p.Description, p.Notes, p.Preset, string(p.Status),
		patient.DateTime(p.StartDate), patient.DateTime(p.EndDate), p.DailyCalories,
		p.Distribution.Protein, p.Distribution.Carbohydrates, p.Distribution.Fats,
		p.MacroGrams.Protein, p.MacroGrams.Carbohydrates, p.MacroGrams.Fats,
		p.Micronutrients, p.WaterGlasses, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM diet_plan WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DietPlan, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diet_plan WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+planCols+` FROM diet_plan WHERE patient_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	plans, err := collectPlans(rows)
	return plans, total, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*DietPlan, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diet_plan`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+planCols+` FROM diet_plan
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	plans, err := collectPlans(rows)
	return plans, total, err
}

func (r *repoPG) ArchiveActive(ctx context.Context, patientID, keep uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE diet_plan SET status = $3, updated_at = NOW()
		WHERE patient_id = $1 AND status = $4 AND id <> $2`,
		patientID, keep, string(StatusArchived), string(StatusActive))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func collectPlans(rows pgx.Rows) ([]*DietPlan, error) {
	defer rows.Close()
	var plans []*DietPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func scanPlan(row pgx.Row) (*DietPlan, error) {
	var (
		p          DietPlan
		status     string
		start, end *time.Time
	)
	err := row.Scan(&p.ID, &p.PatientID, &p.Name, &p.Description, &p.Notes, &p.Preset, &status,
		&start, &end, &p.DailyCalories,
		&p.Distribution.Protein, &p.Distribution.Carbohydrates, &p.Distribution.Fats,
		&p.MacroGrams.Protein, &p.MacroGrams.Carbohydrates, &p.MacroGrams.Fats,
		&p.Micronutrients, &p.WaterGlasses, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	p.StartDate = patient.DateOf(start)
	p.EndDate = patient.DateOf(end)
	return &p, nil
}
