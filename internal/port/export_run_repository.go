package port

import (
	"context"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
)

// ExportRunRepository persists export run history.
type ExportRunRepository interface {
	Create(ctx context.Context, run *domain.ExportRun) error
	GetByID(ctx context.Context, id string) (*domain.ExportRun, error)
	List(ctx context.Context, limit, offset int) ([]domain.ExportRun, int, error)
}
