package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/allocationLedger"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/authService"
	"github.com/KotFed0t/crypto_vault_tracker/internal/transport/rest/middleware"
	"github.com/KotFed0t/crypto_vault_tracker/internal/transport/rest/response"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/gorilla/mux"
)

type PortfolioService interface {
	Latest(ctx context.Context) (model.PortfolioView, error)
	Summary(ctx context.Context) (model.PortfolioSummary, error)
	NavHistory(ctx context.Context, limit int) ([]model.NavHistoryPoint, error)
	Allocations(ctx context.Context, date *string) (map[string]model.AllocationView, error)
	AssetPerformance(ctx context.Context, symbol *string, limit int) ([]model.AssetPerformance, error)
	CurrentPrices(ctx context.Context) (model.CurrentPrices, error)
	ChartData(ctx context.Context, period string) ([]model.ChartDataPoint, error)
	SystemStatus(ctx context.Context) (model.SystemStatusView, error)
	Health(ctx context.Context) (model.HealthStatus, bool)
	TriggerManualUpdate(ctx context.Context) (model.PortfolioView, error)

	CreateAllocation(ctx context.Context, in allocationLedger.CreateInput) (model.AllocationView, error)
	GetAllocation(ctx context.Context, key string, date *string) (model.AllocationView, error)
	UpdateAllocation(ctx context.Context, key string, date *string, in allocationLedger.UpdateInput) (model.AllocationView, error)
	DeleteAllocation(ctx context.Context, key string, date *string) error
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, model.User, error)
	Register(ctx context.Context, email, password, fullName string) (model.User, error)
	Me(ctx context.Context, userID int64) (model.User, error)

	CreateUser(ctx context.Context, in authService.NewUser) (model.User, error)
	ListUsers(ctx context.Context, q authService.UserQuery) (model.UserPage, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	UpdateUser(ctx context.Context, id int64, in authService.UserUpdate) (model.User, error)
	DeactivateUser(ctx context.Context, actorID, id int64) error
}

type ReportService interface {
	LedgerWorkbook(ctx context.Context) ([]byte, string, error)
	Publish(ctx context.Context) (string, error)
}

type Controller struct {
	cfg       *config.Config
	portfolio PortfolioService
	auth      AuthService
	reports   ReportService
}

func NewController(cfg *config.Config, portfolio PortfolioService, auth AuthService, reports ReportService) *Controller {
	return &Controller{
		cfg:       cfg,
		portfolio: portfolio,
		auth:      auth,
		reports:   reports,
	}
}

func (ctrl *Controller) LatestPortfolio(w http.ResponseWriter, r *http.Request) {
	view, err := ctrl.portfolio.Latest(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "No portfolio data found")
		return
	}
	response.Success(w, http.StatusOK, "Latest portfolio data retrieved successfully", view)
}

func (ctrl *Controller) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := ctrl.portfolio.Summary(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "No portfolio data found")
		return
	}
	response.Success(w, http.StatusOK, "Portfolio summary retrieved successfully", summary)
}

func (ctrl *Controller) NavHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseNavHistoryQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := ctrl.portfolio.NavHistory(r.Context(), q.Limit)
	if err != nil {
		ctrl.fail(w, r, err, "Failed to retrieve NAV history")
		return
	}
	response.Success(w, http.StatusOK, "NAV history retrieved successfully", history)
}

func (ctrl *Controller) Allocations(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	allocations, err := ctrl.portfolio.Allocations(r.Context(), date)
	if err != nil {
		ctrl.fail(w, r, err, "Failed to retrieve allocations")
		return
	}
	response.Success(w, http.StatusOK, "Allocations retrieved successfully", allocations)
}

func (ctrl *Controller) AssetPerformance(w http.ResponseWriter, r *http.Request) {
	q, err := parseAssetPerformanceQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := ctrl.portfolio.AssetPerformance(r.Context(), optional(q.Symbol), q.Limit)
	if err != nil {
		ctrl.fail(w, r, err, "Failed to retrieve asset performance data")
		return
	}
	response.Success(w, http.StatusOK, "Asset performance data retrieved successfully", rows)
}

func (ctrl *Controller) CurrentPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := ctrl.portfolio.CurrentPrices(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "No price data found")
		return
	}
	response.Success(w, http.StatusOK, "Current prices retrieved successfully", prices)
}

func (ctrl *Controller) ChartData(w http.ResponseWriter, r *http.Request) {
	q, err := parseChartQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := ctrl.portfolio.ChartData(r.Context(), q.Period)
	if err != nil {
		ctrl.fail(w, r, err, "Failed to retrieve chart data")
		return
	}
	response.Success(w, http.StatusOK, "Chart data retrieved successfully", points)
}

func (ctrl *Controller) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := ctrl.portfolio.SystemStatus(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "No system status data found")
		return
	}
	response.Success(w, http.StatusOK, "System status retrieved successfully", status)
}

func (ctrl *Controller) Health(w http.ResponseWriter, r *http.Request) {
	status, healthy := ctrl.portfolio.Health(r.Context())
	if !healthy {
		response.JSON(w, http.StatusServiceUnavailable, response.Envelope{Success: false, Message: "System is unhealthy", Data: status})
		return
	}
	response.Success(w, http.StatusOK, "System is healthy", status)
}

func (ctrl *Controller) TriggerManualUpdate(w http.ResponseWriter, r *http.Request) {
	view, err := ctrl.portfolio.TriggerManualUpdate(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "Update already in progress")
		return
	}
	response.Success(w, http.StatusOK, "Portfolio updated successfully", view)
}

func (ctrl *Controller) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req createAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := ctrl.portfolio.CreateAllocation(r.Context(), allocationLedger.CreateInput{
		Key:            req.Key,
		Name:           req.Name,
		InitialBalance: *req.InitialBalance,
		Date:           req.Date,
	})
	if err != nil {
		ctrl.fail(w, r, err, "Allocation already exists for this key and date")
		return
	}
	response.Success(w, http.StatusCreated, "Allocation created successfully", view)
}

func (ctrl *Controller) GetAllocation(w http.ResponseWriter, r *http.Request) {
	key, date, ok := allocationTarget(w, r)
	if !ok {
		return
	}

	view, err := ctrl.portfolio.GetAllocation(r.Context(), key, date)
	if err != nil {
		ctrl.fail(w, r, err, "Allocation not found")
		return
	}
	response.Success(w, http.StatusOK, "Allocation retrieved successfully", view)
}

func (ctrl *Controller) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	key, date, ok := allocationTarget(w, r)
	if !ok {
		return
	}

	var req updateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if date == nil {
		date = req.Date
	}

	view, err := ctrl.portfolio.UpdateAllocation(r.Context(), key, date, allocationLedger.UpdateInput{
		Name:    req.Name,
		Balance: req.InitialBalance,
	})
	if err != nil {
		ctrl.fail(w, r, err, "Allocation not found")
		return
	}
	response.Success(w, http.StatusOK, "Allocation updated successfully", view)
}

func (ctrl *Controller) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	key, date, ok := allocationTarget(w, r)
	if !ok {
		return
	}

	if err := ctrl.portfolio.DeleteAllocation(r.Context(), key, date); err != nil {
		ctrl.fail(w, r, err, "Allocation not found")
		return
	}
	response.Success(w, http.StatusOK, "Allocation deleted successfully", nil)
}

func allocationTarget(w http.ResponseWriter, r *http.Request) (string, *string, bool) {
	key := mux.Vars(r)["key"]
	if err := validateStruct(allocationKey{Key: key}); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	date, err := parseDateQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	return key, date, true
}

func (ctrl *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := ctrl.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ctrl.fail(w, r, err, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ctrl.cfg.HTTP.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ctrl.cfg.Auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   ctrl.cfg.HTTP.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	response.Success(w, http.StatusOK, "Login successful", map[string]any{"token": token, "user": user})
}

func (ctrl *Controller) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := ctrl.auth.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		ctrl.fail(w, r, err, "Email already exists")
		return
	}
	response.Success(w, http.StatusCreated, "User registered successfully", user)
}

func (ctrl *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     ctrl.cfg.HTTP.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ctrl.cfg.HTTP.CookieSecure,
	})
	response.Success(w, http.StatusOK, "Successfully Logout", nil)
}

func (ctrl *Controller) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromCtx(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "You are not authorized")
		return
	}

	user, err := ctrl.auth.Me(r.Context(), claims.UserID)
	if err != nil {
		ctrl.fail(w, r, err, "You are not authorized")
		return
	}
	response.Success(w, http.StatusOK, "User retrieved successfully", user)
}

func (ctrl *Controller) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := ctrl.auth.CreateUser(r.Context(), authService.NewUser{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		ctrl.fail(w, r, err, "Email already exists")
		return
	}
	response.Success(w, http.StatusCreated, "User created successfully", user)
}

func (ctrl *Controller) ListUsers(w http.ResponseWriter, r *http.Request) {
	q, err := parseUsersQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := ctrl.auth.ListUsers(r.Context(), authService.UserQuery{Search: q.Search, Page: q.Page, Limit: q.Limit})
	if err != nil {
		ctrl.fail(w, r, err, "Failed to retrieve users")
		return
	}
	response.Success(w, http.StatusOK, "All users retrieved successfully", page)
}

func (ctrl *Controller) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := ctrl.auth.GetUser(r.Context(), id)
	if err != nil {
		ctrl.fail(w, r, err, "User not found")
		return
	}
	response.Success(w, http.StatusOK, "User info retrieved successfully", user)
}

func (ctrl *Controller) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	in := authService.UserUpdate{Email: req.Email, FullName: req.FullName, Password: req.Password}
	if req.Role != nil {
		role := model.Role(*req.Role)
		in.Role = &role
	}

	user, err := ctrl.auth.UpdateUser(r.Context(), id, in)
	if err != nil {
		ctrl.fail(w, r, err, "User not found")
		return
	}
	response.Success(w, http.StatusOK, "User info updated successfully", user)
}

func (ctrl *Controller) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	claims, _ := middleware.ClaimsFromCtx(r.Context())

	if err := ctrl.auth.DeactivateUser(r.Context(), claims.UserID, id); err != nil {
		ctrl.fail(w, r, err, "User not found")
		return
	}
	response.Success(w, http.StatusOK, "User deactivated successfully", nil)
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		response.Error(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (ctrl *Controller) LedgerWorkbook(w http.ResponseWriter, r *http.Request) {
	file, filename, err := ctrl.reports.LedgerWorkbook(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "No ledger data found")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file)))
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(file); err != nil {
		slog.Error("failed to write workbook", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
	}
}

func (ctrl *Controller) PublishReport(w http.ResponseWriter, r *http.Request) {
	link, err := ctrl.reports.Publish(r.Context())
	if err != nil {
		ctrl.fail(w, r, err, "Report publishing is not configured")
		return
	}
	response.Success(w, http.StatusOK, "Report published successfully", map[string]string{"link": link})
}

func (ctrl *Controller) NotFound(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusNotFound, "API not found")
}

// fail maps service errors to a status. expected is the message for the error the endpoint anticipates.
func (ctrl *Controller) fail(w http.ResponseWriter, r *http.Request, err error, expected string) {
	status, message := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, expected
	case errors.Is(err, service.ErrAllocationExists), errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrTickInProgress):
		status, message = http.StatusConflict, expected
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		status, message = http.StatusUnauthorized, expected
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, "You are not allowed to access this resource"
	case errors.Is(err, service.ErrNotConfigured):
		status, message = http.StatusServiceUnavailable, expected
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("path", r.URL.Path), slog.String("err", err.Error()))
	}

	response.Error(w, status, message)
}
