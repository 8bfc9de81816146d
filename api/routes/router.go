package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/supplyhub-backend/api/controllers"
	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	"github.com/angelmondragon/supplyhub-backend/internal/actioncodes"
	"github.com/angelmondragon/supplyhub-backend/internal/deliveryotp"
	"github.com/angelmondragon/supplyhub-backend/internal/ledger"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/payouts"
	"github.com/angelmondragon/supplyhub-backend/internal/purchaseorders"
	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

// Deps carries everything the HTTP surface is wired to.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Idempotency    redis.IdempotencyStore
	Resolver       middleware.ActorResolver
	Ready          map[string]controllers.Pinger
	Metrics        http.Handler
	PurchaseOrders purchaseorders.Service
	Delivery       deliveryotp.Service
	Refunds        refunds.Service
	Payouts        payouts.Service
	ActionCodes    actioncodes.Service
	Ledger         ledger.Service
	Notifications  notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.ResolveActor(d.Resolver, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/orders/{orderId}/purchase-order", func(r chi.Router) {
			r.Get("/", controllers.GetPurchaseOrder(d.PurchaseOrders, logg))
			r.Patch("/status", controllers.SetPurchaseOrderStatus(d.PurchaseOrders, logg))
			r.Post("/rider", controllers.AssignPurchaseOrderRider(d.PurchaseOrders, logg))
			r.Post("/delivery-otp", controllers.RequestDeliveryCode(d.Delivery, logg))
			r.Post("/delivery-otp/verify", controllers.VerifyDeliveryCode(d.Delivery, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleAdmin.String(), logg))
				r.Post("/refund", controllers.RequestRefund(d.Refunds, logg))
				r.Post("/payout", controllers.ReleasePayout(d.Payouts, logg))
			})
		})

		r.Post("/action-codes", controllers.IssueActionCode(d.ActionCodes, logg))
		r.Get("/ledger", controllers.GetLedgerStatement(d.Ledger, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})
	})

	return r
}
