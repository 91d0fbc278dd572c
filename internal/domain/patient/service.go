package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/clinical"
)

// ErrInvalid marks input the service refused; handlers answer 400.
var ErrInvalid = errors.New("invalid patient")

type Service struct {
	patients Repository
	now      func() time.Time
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients, now: time.Now}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.prepare(p, nil); err != nil {
		return err
	}
	p.Active = true
	if err := s.patients.Create(ctx, p); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// UpdatePatient replaces the demographic fields. When the request carries no
// clinical_data the stored snapshot is kept, and a nil active keeps the
// stored flag.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient, active *bool) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.prepare(p, existing); err != nil {
		return err
	}
	p.Active = existing.Active
	if active != nil {
		p.Active = *active
	}
	p.CreatedAt = existing.CreatedAt
	return s.patients.Update(ctx, p)
}

// UpdateClinical replaces only the clinical snapshot, parsed from a lenient record.
func (s *Service) UpdateClinical(ctx context.Context, id uuid.UUID, raw []byte) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot, err := clinical.ParseAt(raw, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if snapshot.IsEmpty() {
		return nil, fmt.Errorf("%w: clinical record carries no recognised field", ErrInvalid)
	}
	p.Clinical = snapshot
	if p.Sex == clinical.SexUnspecified {
		p.Sex = snapshot.Sex
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.patients.List(ctx, limit, offset)
	}
	return s.patients.Search(ctx, name, limit, offset)
}

// prepare validates p and resolves its clinical snapshot. existing is the
// stored record on update, nil on create.
func (s *Service) prepare(p *Patient, existing *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrInvalid)
	}
	p.Email = trimOptional(p.Email)
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalid, *p.Email)
	}
	p.Phone = trimOptional(p.Phone)

	now := s.now()
	if p.BirthDate != nil && p.BirthDate.After(now) {
		return fmt.Errorf("%w: birth_date is in the future", ErrInvalid)
	}
	p.Sex = clinical.ParseSex(string(p.Sex))

	raw := strings.TrimSpace(string(p.ClinicalData))
	switch {
	case raw != "" && raw != "null":
		snapshot, err := clinical.ParseAt(p.ClinicalData, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		p.Clinical = snapshot
	case existing != nil:
		p.Clinical = existing.Clinical
	default:
		p.Clinical = clinical.Snapshot{}
	}
	p.ClinicalData = nil

	if p.Sex == clinical.SexUnspecified {
		p.Sex = p.Clinical.Sex
	}
	return nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
