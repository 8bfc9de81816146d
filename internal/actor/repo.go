package actor

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/repo"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
)

// Repository loads the supplier and rider rows an identity maps to.
type Repository interface {
	FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error)
	FindSupplierByOwner(ctx context.Context, userID uuid.UUID) (*models.Supplier, error)
	FindRiderByUser(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an actor repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.base.DB(ctx).Where("id = ?", supplierID).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindSupplierByOwner(ctx context.Context, userID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.base.DB(ctx).Where("owner_user_id = ?", userID).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindRiderByUser(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.base.DB(ctx).Where("user_id = ?", userID).First(&rider).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}
