package dietplan

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("diet plan not found")

type Repository interface {
	Create(ctx context.Context, p *DietPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*DietPlan, error)
	Update(ctx context.Context, p *DietPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByPatient returns the patient's plans, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DietPlan, int, error)
	List(ctx context.Context, limit, offset int) ([]*DietPlan, int, error)
	// ArchiveActive archives every active plan of the patient except keep
	// and returns how many were archived.
	ArchiveActive(ctx context.Context, patientID, keep uuid.UUID) (int, error)
}
