// Package deliveryotp issues and verifies the one-time codes that confirm a
// purchase order was handed to the shopper.
package deliveryotp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/purchaseorders"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/phone"
	"github.com/angelmondragon/supplyhub-backend/pkg/security"
)

// every verification failure reports the same message
const invalidCodeMessage = "code expired, request a new one"

// errNoActiveCode rolls back a verification that has nothing to record.
var errNoActiveCode = errors.New("no active delivery code")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type codeHasher interface {
	Hash(salt, code string) string
	Matches(salt, candidate, storedHash string) bool
}

type fulfillment interface {
	Lock(ctx context.Context, tx *gorm.DB, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, *models.Order, error)
	MarkDelivered(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, order *models.Order, actx actor.Context) (*purchaseorders.Transition, error)
	Announce(ctx context.Context, t *purchaseorders.Transition)
}

// Service issues and verifies delivery codes.
type Service interface {
	Request(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*Issued, error)
	Verify(ctx context.Context, actx actor.Context, orderID uuid.UUID, code string) (*purchaseorders.Transition, error)
}

// Issued describes a freshly sent code without revealing it.
type Issued struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	Channels        []string  `json:"channels"`
}

// ServiceParams groups the delivery code service dependencies.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	PurchaseOrders fulfillment
	Limiter        rateLimiter
	Hasher         codeHasher
	Outbox         outboxPublisher
	Notifier       notifications.Notifier
	Metrics        *metrics.FulfillmentMetrics
	Logger         *logger.Logger
	Config         config.DeliveryOTPConfig
}

type service struct {
	repo     Repository
	tx       txRunner
	pos      fulfillment
	limiter  rateLimiter
	hasher   codeHasher
	outbox   outboxPublisher
	notifier notifications.Notifier
	metrics  *metrics.FulfillmentMetrics
	logg     *logger.Logger
	cfg      config.DeliveryOTPConfig
	now      func() time.Time
}

// NewService validates and wires the delivery code service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("delivery otp repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.PurchaseOrders == nil:
		return nil, fmt.Errorf("purchase order service required")
	case p.Limiter == nil:
		return nil, fmt.Errorf("rate limiter required")
	case p.Hasher == nil:
		return nil, fmt.Errorf("code hasher required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case p.Config.TTL <= 0 || p.Config.MaxAttempts <= 0 || p.Config.LockoutDuration <= 0:
		return nil, fmt.Errorf("delivery otp ttl, attempts and lockout must be positive")
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		pos:      p.PurchaseOrders,
		limiter:  p.Limiter,
		hasher:   p.Hasher,
		outbox:   p.Outbox,
		notifier: p.Notifier,
		metrics:  p.Metrics,
		logg:     p.Logger,
		cfg:      p.Config,
		now:      time.Now,
	}, nil
}

// Request issues a new code for an in-transit purchase order, replacing any
// code still outstanding.
func (s *service) Request(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*Issued, error) {
	if err := authorize(actx); err != nil {
		s.metrics.IncOTPRequest(metrics.ResultRejected)
		return nil, err
	}
	code, err := security.GenerateNumericCode(security.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery code")
	}
	salt, err := security.GenerateSalt()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery code")
	}

	var (
		issued  *Issued
		contact notifications.Contact
		shopper uuid.UUID
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		po, order, err := s.pos.Lock(ctx, tx, orderID, *actx.SupplierID)
		if err != nil {
			return err
		}
		if err := checkRider(actx, po); err != nil {
			return err
		}
		if !po.Status.InTransit() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery codes are only issued while the order is in transit").
				WithDetails(map[string]string{"status": po.Status.String()})
		}
		if err := s.allowRequest(ctx, orderID, *actx.SupplierID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		contact, err = s.resolveContact(ctx, repo, order)
		if err != nil {
			return err
		}
		shopper = order.ShopperUserID

		now := s.now().UTC()
		expiresAt := now.Add(s.cfg.TTL)
		phoneCol, emailCol := optional(contact.Phone), optional(contact.Email)

		existing, err := repo.FindActiveForUpdate(ctx, po.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery code")
		}
		// the purchase order lock serializes requests, so at most one
		// unconsumed row exists and it is refreshed in place
		if existing != nil {
			err = repo.Update(ctx, existing.ID, map[string]any{
				"code_hash":            s.hasher.Hash(salt, code),
				"salt":                 salt,
				"expires_at":           expiresAt,
				"attempts":             0,
				"locked_until":         nil,
				"verified_at":          nil,
				"delivered_at":         nil,
				"verified_by_user_id":  nil,
				"requested_by_user_id": actx.UserID,
				"delivery_phone":       phoneCol,
				"delivery_email":       emailCol,
				"updated_at":           now,
			})
		} else {
			err = repo.Create(ctx, &models.PurchaseOrderDeliveryOtp{
				ID:                uuid.New(),
				PurchaseOrderID:   po.ID,
				CodeHash:          s.hasher.Hash(salt, code),
				Salt:              salt,
				ExpiresAt:         expiresAt,
				RequestedByUserID: actx.UserID,
				DeliveryPhone:     phoneCol,
				DeliveryEmail:     emailCol,
			})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store delivery code")
		}

		issued = &Issued{PurchaseOrderID: po.ID, ExpiresAt: expiresAt, Channels: channelsFor(contact)}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryOTPIssued,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         actx.OutboxRef(),
			OccurredAt:    now,
			Data: outbox.DeliveryOTPIssued{
				PurchaseOrderID: po.ID,
				OrderID:         po.OrderID,
				ExpiresAt:       expiresAt,
				Channels:        issued.Channels,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery code event")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
			s.metrics.IncOTPRequest(metrics.ResultRejected)
		}
		return nil, err
	}

	s.metrics.IncOTPRequest(metrics.ResultSuccess)
	s.sendCode(ctx, shopper, issued, contact, code)
	return issued, nil
}

// allowRequest charges the per purchase order request budget. Callers must
// have authorized the actor for the purchase order first.
func (s *service) allowRequest(ctx context.Context, orderID, supplierID uuid.UUID) error {
	if s.cfg.RequestLimit <= 0 || s.cfg.RequestWindow <= 0 {
		return nil
	}
	scope := fmt.Sprintf("delivery_otp:%s:%s", orderID, supplierID)
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(s.cfg.RequestLimit), s.cfg.RequestWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check delivery code rate limit")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many delivery code requests, try again later")
	}
	return nil
}

// Verify checks candidate against the active code. A match confirms delivery
// and releases the payout in one transaction. A mismatch still commits the
// attempt counter before the error is returned.
func (s *service) Verify(ctx context.Context, actx actor.Context, orderID uuid.UUID, candidate string) (*purchaseorders.Transition, error) {
	started := s.now()
	if err := authorize(actx); err != nil {
		return nil, err
	}
	candidate = strings.TrimSpace(candidate)
	if !security.IsNumericCode(candidate, security.CodeLength) {
		s.metrics.IncVerification(metrics.ResultInvalid)
		return nil, invalidCode()
	}

	var (
		transition *purchaseorders.Transition
		outcome    = metrics.ResultInvalid
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		po, order, err := s.pos.Lock(ctx, tx, orderID, *actx.SupplierID)
		if err != nil {
			return err
		}
		if err := checkRider(actx, po); err != nil {
			return err
		}
		if !po.Status.InTransit() {
			return errNoActiveCode
		}

		repo := s.repo.WithTx(tx)
		otp, err := repo.FindActiveForUpdate(ctx, po.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery code")
		}
		now := s.now().UTC()
		if otp == nil || otp.VerifiedAt != nil || !now.Before(otp.ExpiresAt) {
			return errNoActiveCode
		}

		fields := map[string]any{"updated_at": now}
		attempts := otp.Attempts
		if otp.LockedUntil != nil {
			if now.Before(*otp.LockedUntil) {
				outcome = metrics.ResultLocked
				return errNoActiveCode
			}
			// an expired lock starts a fresh round of attempts
			attempts = 0
			fields["attempts"] = 0
			fields["locked_until"] = nil
		}

		if !s.hasher.Matches(otp.Salt, candidate, otp.CodeHash) {
			outcome = metrics.ResultMismatch
			attempts++
			fields["attempts"] = attempts
			if attempts >= s.cfg.MaxAttempts {
				fields["locked_until"] = now.Add(s.cfg.LockoutDuration)
			}
			if err := repo.Update(ctx, otp.ID, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery code attempt")
			}
			return nil
		}

		by := actx.UserID
		fields["verified_at"] = now
		fields["consumed_at"] = now
		fields["delivered_at"] = now
		fields["verified_by_user_id"] = by
		if err := repo.Update(ctx, otp.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume delivery code")
		}

		transition, err = s.pos.MarkDelivered(ctx, tx, po, order, actx)
		if err != nil {
			return err
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryOTPVerified,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         actx.OutboxRef(),
			OccurredAt:    now,
			Data: outbox.DeliveryOTPVerified{
				PurchaseOrderID: po.ID,
				OrderID:         po.OrderID,
				VerifiedBy:      by,
				VerifiedAt:      now,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery verified event")
		}
		outcome = metrics.ResultSuccess
		return nil
	})
	if errors.Is(err, errNoActiveCode) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.IncVerification(outcome)
	if transition == nil {
		return nil, invalidCode()
	}

	s.metrics.ObserveDuration("verify_delivery", s.now().Sub(started))
	if s.logg != nil {
		logCtx := s.logg.WithPurchaseOrderID(ctx, transition.PurchaseOrder.ID.String())
		if actx.RiderID != nil {
			logCtx = s.logg.WithRiderID(logCtx, actx.RiderID.String())
		}
		s.logg.Info(logCtx, "delivery confirmed")
	}
	s.pos.Announce(ctx, transition)
	return transition, nil
}

// resolveContact prefers the shipping details captured at checkout and falls
// back to the shopper's account.
func (s *service) resolveContact(ctx context.Context, repo Repository, order *models.Order) (notifications.Contact, error) {
	region := s.cfg.DefaultPhoneRegion
	if order.ShippingCountry != nil && strings.TrimSpace(*order.ShippingCountry) != "" {
		region = strings.TrimSpace(*order.ShippingCountry)
	}

	var contact notifications.Contact
	if order.ShippingPhone != nil {
		if normalized, err := phone.NormalizeE164(*order.ShippingPhone, region); err == nil {
			contact.Phone = normalized
		}
	}
	if order.ShippingEmail != nil {
		contact.Email = strings.TrimSpace(*order.ShippingEmail)
	}
	if contact.Phone == "" || contact.Email == "" {
		user, err := repo.FindUser(ctx, order.ShopperUserID)
		switch {
		case err == nil:
			if contact.Phone == "" && user.Phone != nil {
				if normalized, err := phone.NormalizeE164(*user.Phone, region); err == nil {
					contact.Phone = normalized
				}
			}
			if contact.Email == "" && user.Email != nil {
				contact.Email = strings.TrimSpace(*user.Email)
			}
		case !dbpkg.IsNotFound(err):
			return contact, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shopper")
		}
	}
	if contact.Phone == "" && contact.Email == "" {
		return contact, pkgerrors.New(pkgerrors.CodeNoContact, "no phone or email on file for the shopper")
	}
	return contact, nil
}

func (s *service) sendCode(ctx context.Context, shopper uuid.UUID, issued *Issued, contact notifications.Contact, code string) {
	if s.notifier == nil {
		return
	}
	minutes := int(s.cfg.TTL.Minutes())
	msg := notifications.ToUser(shopper, enums.NotificationTypeDeliveryCode,
		"Your delivery code",
		fmt.Sprintf("Share the code we sent you with the rider to confirm delivery. It expires in %d minutes.", minutes),
		map[string]any{
			"purchase_order_id": issued.PurchaseOrderID.String(),
			"expires_at":        issued.ExpiresAt,
		},
	)
	msg.Channels = issued.Channels
	c := contact
	msg.Contact = &c
	msg.Secret = code
	if err := s.notifier.Notify(ctx, msg); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithPurchaseOrderID(ctx, issued.PurchaseOrderID.String()), "delivery code notification failed", err)
	}
}

// authorize admits the supplier, an admin acting for it, and its riders.
// Rider assignment to the specific purchase order is checked under the lock.
func authorize(actx actor.Context) error {
	if actx.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actx.SupplierID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "supplier scope required")
	}
	if actx.ActsForSupplier() || (actx.IsRider() && actx.RiderID != nil) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not handle delivery codes")
}

func checkRider(actx actor.Context, po *models.PurchaseOrder) error {
	if !actx.IsRider() {
		return nil
	}
	if po.RiderID == nil || actx.RiderID == nil || *po.RiderID != *actx.RiderID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "purchase order is not assigned to this rider")
	}
	return nil
}

func channelsFor(c notifications.Contact) []string {
	channels := []string{}
	if c.Phone != "" {
		channels = append(channels, notifications.ChannelSMS)
	}
	if c.Email != "" {
		channels = append(channels, notifications.ChannelEmail)
	}
	return channels
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func invalidCode() error {
	return pkgerrors.New(pkgerrors.CodeInvalidCode, invalidCodeMessage)
}
