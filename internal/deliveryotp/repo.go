package deliveryotp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/repo"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
)

// Repository stores the single active delivery code row per purchase order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveForUpdate(ctx context.Context, purchaseOrderID uuid.UUID) (*models.PurchaseOrderDeliveryOtp, error)
	Create(ctx context.Context, otp *models.PurchaseOrderDeliveryOtp) error
	Update(ctx context.Context, otpID uuid.UUID, fields map[string]any) error
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	DeleteSpentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a delivery code repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// FindActiveForUpdate returns the unconsumed row, or nil when there is none.
func (r *repository) FindActiveForUpdate(ctx context.Context, purchaseOrderID uuid.UUID) (*models.PurchaseOrderDeliveryOtp, error) {
	var otp models.PurchaseOrderDeliveryOtp
	err := repo.ForUpdate(r.base.DB(ctx)).
		Where("purchase_order_id = ? AND consumed_at IS NULL", purchaseOrderID).
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *repository) Create(ctx context.Context, otp *models.PurchaseOrderDeliveryOtp) error {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(otp).Error
}

func (r *repository) Update(ctx context.Context, otpID uuid.UUID, fields map[string]any) error {
	return r.base.DB(ctx).
		Model(&models.PurchaseOrderDeliveryOtp{}).
		Where("id = ?", otpID).
		Updates(fields).Error
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.base.DB(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteSpentBefore purges consumed or expired codes older than cutoff.
func (r *repository) DeleteSpentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Where("(consumed_at IS NOT NULL AND consumed_at < ?) OR expires_at < ?", cutoff, cutoff).
		Delete(&models.PurchaseOrderDeliveryOtp{})
	return res.RowsAffected, res.Error
}
