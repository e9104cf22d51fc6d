package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/courtbook/slot-engine/internal/audit"
	"github.com/courtbook/slot-engine/internal/config"
	"github.com/courtbook/slot-engine/internal/domain/businesshours"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/handlers"
	"github.com/courtbook/slot-engine/internal/infra/lock"
	"github.com/courtbook/slot-engine/internal/infra/proofstore"
	infraRepo "github.com/courtbook/slot-engine/internal/infra/repository"
	"github.com/courtbook/slot-engine/internal/middleware"
	ucAvailability "github.com/courtbook/slot-engine/internal/usecase/availability"
	ucBooking "github.com/courtbook/slot-engine/internal/usecase/booking"
	ucCart "github.com/courtbook/slot-engine/internal/usecase/cart"
	ucReconcile "github.com/courtbook/slot-engine/internal/usecase/reconcile"
	ucWaitlist "github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

// Deps are the process-wide collaborators built in main.
type Deps struct {
	Clock    clockwork.Clock
	Hours    *businesshours.Calculator
	Audit    *audit.Dispatcher
	Notifier *events.Notifier
	Proofs   proofstore.Checker
	Locker   lock.Locker
}

// RegisterRoutes wires the use cases onto r and returns the sweeper so the
// scheduler can run the same instance.
func RegisterRoutes(
	r *gin.Engine,
	db *gorm.DB,
	cfg *config.Config,
	deps Deps,
) *ucReconcile.Sweeper {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ======================================================
	// 🔧 INFRA (SINGLETONS)
	// ======================================================
	repo := infraRepo.NewGormRepository(db)
	auditLogger := audit.New(db)

	checker := ucAvailability.NewChecker(cfg.SlotPolicy(), deps.Clock)
	manager := ucWaitlist.NewManager(checker, deps.Hours, deps.Clock)

	// ======================================================
	// 🧠 USE CASES - AVAILABILITY / CART
	// ======================================================
	getAvailabilityUC := ucAvailability.NewGetAvailability(repo, checker, cfg.SlotMinutes)

	getCartUC := ucCart.NewGetCart(repo)
	addItemsUC := ucCart.NewAddItems(repo, checker, manager, deps.Audit, deps.Clock)
	removeItemUC := ucCart.NewRemoveItem(repo, deps.Audit)
	checkoutUC := ucCart.NewCheckout(repo, checker, deps.Proofs, deps.Audit, deps.Clock)
	attachProofUC := ucCart.NewAttachProof(repo, deps.Proofs, deps.Audit)
	cartReviewUC := ucCart.NewReview(repo, checker, manager, deps.Notifier, deps.Audit, deps.Clock)

	// ======================================================
	// 🧠 USE CASES - WAITLIST / BOOKINGS
	// ======================================================
	listEntriesUC := ucWaitlist.NewListEntries(repo)
	cancelEntryUC := ucWaitlist.NewCancelEntry(repo, manager, deps.Notifier, deps.Audit)
	expireEntryUC := ucWaitlist.NewExpireEntry(repo, manager, deps.Notifier, deps.Audit)

	payBookingUC := ucBooking.NewPayBooking(repo, manager, deps.Proofs, deps.Notifier, deps.Audit, deps.Clock)
	cancelBookingUC := ucBooking.NewCancelBooking(repo, manager, deps.Notifier, deps.Audit, deps.Clock)
	bookingReviewUC := ucBooking.NewReview(repo, checker, manager, deps.Notifier, deps.Audit, deps.Clock)
	attendanceUC := ucBooking.NewAttendance(repo, deps.Audit, deps.Clock)

	sweeper := ucReconcile.NewSweeper(
		repo,
		manager,
		expireEntryUC,
		deps.Notifier,
		deps.Audit,
		deps.Locker,
		deps.Clock,
		ucReconcile.Options{
			Lookback:   cfg.ReconcileLookback,
			PendingTTL: cfg.PendingCartTTL,
		},
	)

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	availabilityHandler := handlers.NewAvailabilityHandler(getAvailabilityUC)
	cartHandler := handlers.NewCartHandler(
		getCartUC,
		addItemsUC,
		removeItemUC,
		checkoutUC,
		attachProofUC,
	)
	waitlistHandler := handlers.NewWaitlistHandler(listEntriesUC, cancelEntryUC)
	bookingHandler := handlers.NewBookingHandler(payBookingUC, cancelBookingUC)
	staffHandler := handlers.NewStaffHandler(
		cartReviewUC,
		bookingReviewUC,
		attendanceUC,
		expireEntryUC,
		sweeper,
	)
	auditLogsHandler := handlers.NewAuditLogsHandler(auditLogger)

	// ======================================================
	// 🔐 AUTHENTICATED API
	// ======================================================
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/courts/:id/availability", availabilityHandler.Availability)
		api.GET("/courts/:id/slots", availabilityHandler.Slots)

		api.GET("/cart", cartHandler.Get)
		api.POST("/cart/items", cartHandler.AddItems)
		api.DELETE("/cart/items/:id", cartHandler.RemoveItem)
		api.POST("/cart/:id/checkout", cartHandler.Checkout)
		api.POST("/cart/:id/proof", cartHandler.AttachProof)

		api.GET("/waitlist", waitlistHandler.List)
		api.DELETE("/waitlist/:id", waitlistHandler.Cancel)

		api.POST("/bookings/:id/payment", bookingHandler.Pay)
		api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	}

	// ======================================================
	// 🛠️ STAFF
	// ======================================================
	staff := api.Group("/staff")
	staff.Use(middleware.RequireStaff())
	{
		staff.POST("/transactions/:id/approve", staffHandler.ApproveTransaction)
		staff.POST("/transactions/:id/reject", staffHandler.RejectTransaction)

		staff.POST("/bookings/:id/approve", staffHandler.ApproveBooking)
		staff.POST("/bookings/:id/reject", staffHandler.RejectBooking)
		staff.POST("/bookings/:id/checkin", staffHandler.CheckIn)
		staff.POST("/bookings/:id/complete", staffHandler.Complete)

		staff.POST("/waitlist/:id/expire", staffHandler.ExpireWaitlistEntry)
		staff.POST("/reconcile", staffHandler.Reconcile)

		staff.GET("/audit-logs", auditLogsHandler.List)
	}

	return sweeper
}
