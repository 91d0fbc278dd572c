package patient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

type repoSQLite struct {
	db *sql.DB
}

func NewRepoSQLite(conn *sql.DB) Repository {
	return &repoSQLite{db: conn}
}

func (r *repoSQLite) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	snapshot, err := json.Marshal(p.Clinical)
	if err != nil {
		return fmt.Errorf("encode clinical snapshot: %w", err)
	}
	_, err = db.SQLConn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO patient (`+patientCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), p.FirstName, p.LastName, p.Email, p.Phone, DateString(p.BirthDate),
		string(p.Sex), p.Active, string(snapshot), sqliteTime(p.CreatedAt), sqliteTime(p.UpdatedAt),
	)
	return err
}

func (r *repoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := db.SQLConn(ctx, r.db).QueryRowContext(ctx, `SELECT `+patientCols+` FROM patient WHERE id = ?`, id.String())
	return scanSQLitePatient(row)
}

func (r *repoSQLite) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	snapshot, err := json.Marshal(p.Clinical)
	if err != nil {
		return fmt.Errorf("encode clinical snapshot: %w", err)
	}
	res, err := db.SQLConn(ctx, r.db).ExecContext(ctx, `
		UPDATE patient SET
			first_name=?, last_name=?, email=?, phone=?, birth_date=?,
			sex=?, active=?, clinical=?, updated_at=?
		WHERE id = ?`,
		p.FirstName, p.LastName, p.Email, p.Phone, DateString(p.BirthDate),
		string(p.Sex), p.Active, string(snapshot), sqliteTime(p.UpdatedAt), p.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *repoSQLite) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := db.SQLConn(ctx, r.db).ExecContext(ctx, `DELETE FROM patient WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *repoSQLite) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	conn := db.SQLConn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	patients, err := collectSQLitePatients(rows)
	return patients, total, err
}

func (r *repoSQLite) Search(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	// LIKE is case-insensitive for ASCII in SQLite.
	const where = ` WHERE first_name LIKE ?1 OR last_name LIKE ?1 OR (first_name || ' ' || last_name) LIKE ?1`
	pattern := "%" + name + "%"
	conn := db.SQLConn(ctx, r.db)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM patient`+where, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT `+patientCols+` FROM patient`+where+` ORDER BY last_name, first_name, id LIMIT ?2 OFFSET ?3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	patients, err := collectSQLitePatients(rows)
	return patients, total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectSQLitePatients(rows *sql.Rows) ([]*Patient, error) {
	defer rows.Close()
	var patients []*Patient
	for rows.Next() {
		p, err := scanSQLitePatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func scanSQLitePatient(row rowScanner) (*Patient, error) {
	var (
		p                 Patient
		id, sex, snapshot string
		birth             *string
		created, updated  string
	)
	err := row.Scan(&id, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &birth,
		&sex, &p.Active, &snapshot, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("patient id %q: %w", id, err)
	}
	if p.BirthDate, err = ParseDateString(birth); err != nil {
		return nil, fmt.Errorf("patient %s birth date: %w", id, err)
	}
	if err := json.Unmarshal([]byte(snapshot), &p.Clinical); err != nil {
		return nil, fmt.Errorf("patient %s clinical snapshot: %w", id, err)
	}
	p.Sex = clinical.Sex(sex)
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("patient %s created_at: %w", id, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("patient %s updated_at: %w", id, err)
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
