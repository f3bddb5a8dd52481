package patient

import (
	"context"
	"errors"

	"github.com/adimyra/medilims/internal/platform/db"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	// GetMany returns the patients that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*Patient, error)
	List(ctx context.Context, filters db.Filters, limit, offset int) ([]*Patient, int, error)
	// First returns the most recently modified patient, or ErrNotFound.
	First(ctx context.Context) (*Patient, error)
}
