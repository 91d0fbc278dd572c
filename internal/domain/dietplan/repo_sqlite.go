package dietplan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

type repoSQLite struct {
	db *sql.DB
}

func NewRepoSQLite(conn *sql.DB) Repository {
	return &repoSQLite{db: conn}
}

func (r *repoSQLite) Create(ctx context.Context, p *DietPlan) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	micros, err := json.Marshal(p.Micronutrients)
	if err != nil {
		return fmt.Errorf("encode micronutrients: %w", err)
	}
	_, err = db.SQLConn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO diet_plan (`+planCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), p.PatientID.String(), p.Name, p.Description, p.Notes, p.Preset, string(p.Status),
		patient.DateString(p.StartDate), patient.DateString(p.EndDate),
		p.DailyCalories, p.Distribution.Protein, p.Distribution.Carbohydrates, p.Distribution.Fats,
		p.MacroGrams.Protein, p.MacroGrams.Carbohydrates, p.MacroGrams.Fats,
		string(micros), p.WaterGlasses, sqliteTime(p.CreatedAt), sqliteTime(p.UpdatedAt),
	)
	return err
}

func (r *repoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*DietPlan, error) {
	row := db.SQLConn(ctx, r.db).QueryRowContext(ctx, `SELECT `+planCols+` FROM diet_plan WHERE id = ?`, id.String())
	return scanSQLitePlan(row)
}

func (r *repoSQLite) Update(ctx context.Context, p *DietPlan) error {
	p.UpdatedAt = time.Now().UTC()
	micros, err := json.Marshal(p.Micronutrients)
	if err != nil {
		return fmt.Errorf("encode micronutrients: %w", err)
	}
	res, err := db.SQLConn(ctx, r.db).ExecContext(ctx, `
		UPDATE diet_plan SET
			patient_id=?, name=?, description=?, notes=?, preset=?, status=?,
			start_date=?, end_date=?, daily_calories=?,
			protein_pct=?, carbohydrates_pct=?, fats_pct=?,
			protein_g=?, carbohydrates_g=?, fats_g=?,
			micronutrients=?, water_glasses=?, updated_at=?
		WHERE id = ?`,
		p.PatientID.String(), p.Name, p.Description, p.Notes, p.Preset, string(p.Status),
		patient.DateString(p.StartDate), patient.DateString(p.EndDate), p.DailyCalories,
		p.Distribution.Protein, p.Distribution.Carbohydrates, p.Distribution.Fats,
		p.MacroGrams.Protein, p.MacroGrams.Carbohydrates, p.MacroGrams.Fats,
		string(micros), p.WaterGlasses, sqliteTime(p.UpdatedAt), p.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *repoSQLite) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := db.SQLConn(ctx, r.db).ExecContext(ctx, `DELETE FROM diet_plan WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *repoSQLite) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DietPlan, int, error) {
	conn := db.SQLConn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM diet_plan WHERE patient_id = ?`, patientID.String()).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+planCols+` FROM diet_plan WHERE patient_id = ?
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, patientID.String(), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	plans, err := collectSQLitePlans(rows)
	return plans, total, err
}

func (r *repoSQLite) List(ctx context.Context, limit, offset int) ([]*DietPlan, int, error) {
	conn := db.SQLConn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM diet_plan`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+planCols+` FROM diet_plan
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	plans, err := collectSQLitePlans(rows)
	return plans, total, err
}

func (r *repoSQLite) ArchiveActive(ctx context.Context, patientID, keep uuid.UUID) (int, error) {
	res, err := db.SQLConn(ctx, r.db).ExecContext(ctx, `
		UPDATE diet_plan SET status = ?, updated_at = ?
		WHERE patient_id = ? AND status = ? AND id <> ?`,
		string(StatusArchived), sqliteTime(time.Now()), patientID.String(), string(StatusActive), keep.String())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectSQLitePlans(rows *sql.Rows) ([]*DietPlan, error) {
	defer rows.Close()
	var plans []*DietPlan
	for rows.Next() {
		p, err := scanSQLitePlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func scanSQLitePlan(row rowScanner) (*DietPlan, error) {
	var (
		p                     DietPlan
		id, patientID, status string
		micros                string
		start, end            *string
		created, updated      string
	)
	err := row.Scan(&id, &patientID, &p.Name, &p.Description, &p.Notes, &p.Preset, &status,
		&start, &end, &p.DailyCalories,
		&p.Distribution.Protein, &p.Distribution.Carbohydrates, &p.Distribution.Fats,
		&p.MacroGrams.Protein, &p.MacroGrams.Carbohydrates, &p.MacroGrams.Fats,
		&micros, &p.WaterGlasses, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("diet plan id %q: %w", id, err)
	}
	if p.PatientID, err = uuid.Parse(patientID); err != nil {
		return nil, fmt.Errorf("diet plan %s patient id: %w", id, err)
	}
	p.Status = Status(status)
	if p.StartDate, err = patient.ParseDateString(start); err != nil {
		return nil, fmt.Errorf("diet plan %s start date: %w", id, err)
	}
	if p.EndDate, err = patient.ParseDateString(end); err != nil {
		return nil, fmt.Errorf("diet plan %s end date: %w", id, err)
	}
	if err := json.Unmarshal([]byte(micros), &p.Micronutrients); err != nil {
		return nil, fmt.Errorf("diet plan %s micronutrients: %w", id, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("diet plan %s created_at: %w", id, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("diet plan %s updated_at: %w", id, err)
	}
	return &p, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Fixed-width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
