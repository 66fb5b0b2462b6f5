package rest

import (
	"net/http"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/transport/rest/middleware"
	"github.com/gorilla/mux"
)

// NewRouter mounts the API under /api/v1 and the metrics handler at /metrics.
func NewRouter(cfg *config.Config, ctrl *Controller, authenticator middleware.Authenticator, metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Logger, middleware.Recover, middleware.CORS(cfg.HTTP.ClientUrl))
	router.NotFoundHandler = http.HandlerFunc(ctrl.NotFound)

	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	// preflight; CORS answers it before the handler runs
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	signedIn := middleware.AuthGuard(authenticator, cfg.HTTP.CookieName)
	admin := middleware.AuthGuard(authenticator, cfg.HTTP.CookieName, model.RoleAdmin)

	api.HandleFunc("/auth/register", ctrl.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", ctrl.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", ctrl.Logout).Methods(http.MethodPost)
	api.Handle("/auth/me", signedIn(http.HandlerFunc(ctrl.Me))).Methods(http.MethodGet)

	api.HandleFunc("/crypto/portfolio/latest", ctrl.LatestPortfolio).Methods(http.MethodGet)
	api.HandleFunc("/crypto/portfolio/summary", ctrl.PortfolioSummary).Methods(http.MethodGet)
	api.HandleFunc("/crypto/portfolio/nav-history", ctrl.NavHistory).Methods(http.MethodGet)

	api.HandleFunc("/crypto/allocations", ctrl.Allocations).Methods(http.MethodGet)
	api.Handle("/crypto/allocations", admin(http.HandlerFunc(ctrl.CreateAllocation))).Methods(http.MethodPost)

	api.HandleFunc("/crypto/assets/performance", ctrl.AssetPerformance).Methods(http.MethodGet)
	api.HandleFunc("/crypto/prices/current", ctrl.CurrentPrices).Methods(http.MethodGet)
	api.HandleFunc("/crypto/chart-data", ctrl.ChartData).Methods(http.MethodGet)

	api.HandleFunc("/crypto/system/status", ctrl.SystemStatus).Methods(http.MethodGet)
	api.HandleFunc("/crypto/system/health", ctrl.Health).Methods(http.MethodGet)
	api.Handle("/crypto/system/update", admin(http.HandlerFunc(ctrl.TriggerManualUpdate))).Methods(http.MethodPost)

	api.Handle("/crypto/reports/ledger.xlsx", signedIn(http.HandlerFunc(ctrl.LedgerWorkbook))).Methods(http.MethodGet)
	api.Handle("/crypto/reports/publish", admin(http.HandlerFunc(ctrl.PublishReport))).Methods(http.MethodPost)

	api.HandleFunc("/allocation", ctrl.Allocations).Methods(http.MethodGet)
	api.Handle("/allocation", admin(http.HandlerFunc(ctrl.CreateAllocation))).Methods(http.MethodPost)
	api.HandleFunc("/allocation/{key}", ctrl.GetAllocation).Methods(http.MethodGet)
	api.Handle("/allocation/{key}", admin(http.HandlerFunc(ctrl.UpdateAllocation))).Methods(http.MethodPut)
	api.Handle("/allocation/{key}", admin(http.HandlerFunc(ctrl.DeleteAllocation))).Methods(http.MethodDelete)

	api.Handle("/users", admin(http.HandlerFunc(ctrl.CreateUser))).Methods(http.MethodPost)
	api.Handle("/users", admin(http.HandlerFunc(ctrl.ListUsers))).Methods(http.MethodGet)
	api.Handle("/users/{id}", admin(http.HandlerFunc(ctrl.GetUser))).Methods(http.MethodGet)
	api.Handle("/users/{id}", admin(http.HandlerFunc(ctrl.UpdateUser))).Methods(http.MethodPut)
	api.Handle("/users/{id}", admin(http.HandlerFunc(ctrl.DeleteUser))).Methods(http.MethodDelete)

	return router
}
