package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/erazemk/custody/internal/certificate"
	"github.com/erazemk/custody/internal/custody"
	"github.com/erazemk/custody/internal/metrics"
	"github.com/erazemk/custody/internal/model"
)

// Options configures the API router.
type Options struct {
	DB             *sql.DB
	JWTSecret      string
	Metrics        *metrics.Metrics // optional
	Location       *time.Location   // zone for certificates and exports, UTC if nil
	EquipmentTypes []string         // configured equipment type catalogue
	Now            func() time.Time // optional
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	renderer, err := certificate.NewRenderer(opts.Location)
	if err != nil {
		return nil, fmt.Errorf("loading certificate template: %w", err)
	}

	svc := &custody.Service{DB: opts.DB, Now: opts.Now}
	if opts.Metrics != nil {
		svc.Metrics = opts.Metrics
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret}
	usersHandler := &UsersHandler{DB: opts.DB}
	unitsHandler := &UnitsHandler{DB: opts.DB}
	equipmentHandler := &EquipmentHandler{DB: opts.DB, Catalogue: opts.EquipmentTypes}
	transfersHandler := &TransfersHandler{DB: opts.DB, Service: svc, Renderer: renderer, Now: opts.Now}
	ledgerHandler := &LedgerHandler{DB: opts.DB, Location: opts.Location, Now: opts.Now}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Units: read (all roles), create (manager+).
	mux.Handle("GET /api/units", authMW(http.HandlerFunc(unitsHandler.List)))
	mux.Handle("POST /api/units", authMW(requireManager(http.HandlerFunc(unitsHandler.Create))))
	mux.Handle("GET /api/units/{id}/equipment", authMW(http.HandlerFunc(unitsHandler.Holdings)))

	// Equipment: read (all roles), provision and photo upload (manager+).
	mux.Handle("GET /api/equipment-types", authMW(http.HandlerFunc(equipmentHandler.Types)))
	mux.Handle("GET /api/equipment", authMW(http.HandlerFunc(equipmentHandler.List)))
	mux.Handle("POST /api/equipment", authMW(requireManager(http.HandlerFunc(equipmentHandler.Provision))))
	mux.Handle("GET /api/equipment/{id}", authMW(http.HandlerFunc(equipmentHandler.Get)))
	mux.Handle("GET /api/equipment/{id}/history", authMW(http.HandlerFunc(equipmentHandler.History)))
	mux.Handle("PUT /api/equipment/{id}/image", authMW(requireManager(http.HandlerFunc(equipmentHandler.UploadImage))))
	mux.Handle("GET /api/equipment/{id}/image", authMW(http.HandlerFunc(equipmentHandler.GetImage)))

	// Transfers (all roles).
	mux.Handle("POST /api/transfers", authMW(http.HandlerFunc(transfersHandler.Create)))
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("GET /api/transfers/{no}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("GET /api/transfers/{no}/certificate", authMW(http.HandlerFunc(transfersHandler.Certificate)))

	// Ledger reports (all roles).
	mux.Handle("GET /api/ledger/stats", authMW(http.HandlerFunc(ledgerHandler.Stats)))
	mux.Handle("GET /api/export/ledger.xlsx", authMW(http.HandlerFunc(ledgerHandler.Export)))

	return LoggingMiddleware(opts.Metrics)(mux), nil
}
