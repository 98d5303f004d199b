package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/state"
	"github.com/openyield/svm/internal/types"
	"github.com/openyield/svm/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the vault over a JSON HTTP API. Mutating endpoints take
// the acting address in the request body; the vault enforces authorization,
// the server only translates errors to status codes.
type WebServer struct {
	router *mux.Router
	vault  *vault.Controller
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(vc *vault.Controller, port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		vault:  vc,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Read-only vault queries
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault/strategies", ws.handleGetStrategies).Methods("GET")
	api.HandleFunc("/vault/harvests", ws.handleGetHarvests).Methods("GET")
	api.HandleFunc("/vault/convert", ws.handleConvert).Methods("GET")
	api.HandleFunc("/vault/holders/{address}", ws.handleGetHolder).Methods("GET")

	// User operations
	api.HandleFunc("/vault/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/vault/mint", ws.handleMint).Methods("POST")
	api.HandleFunc("/vault/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/vault/redeem", ws.handleRedeem).Methods("POST")
	api.HandleFunc("/vault/emergency-withdraw", ws.handleEmergencyWithdraw).Methods("POST")
	api.HandleFunc("/shares/transfer", ws.handleTransferShares).Methods("POST")
	api.HandleFunc("/shares/approve", ws.handleApproveShares).Methods("POST")

	// Privileged operations
	api.HandleFunc("/admin/pause", ws.handlePause).Methods("POST")
	api.HandleFunc("/admin/unpause", ws.handleUnpause).Methods("POST")
	api.HandleFunc("/admin/rebalance", ws.handleRebalance).Methods("POST")
	api.HandleFunc("/admin/harvest", ws.handleHarvest).Methods("POST")
	api.HandleFunc("/admin/allocation", ws.handleUpdateAllocation).Methods("POST")
	api.HandleFunc("/admin/strategies/remove", ws.handleRemoveStrategy).Methods("POST")
	api.HandleFunc("/admin/parameters", ws.handleSetParameters).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server and vault health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	totalAssets := "unavailable"
	valuationHealthy := true
	if total, err := ws.vault.TotalAssets(); err == nil {
		totalAssets = total.String()
	} else {
		valuationHealthy = false
	}

	overallStatus := "OK"
	if !dbHealthy || !valuationHealthy {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "svm-strategy-vault-manager",
			"version": "1.0.0",
		},
		"vault_status": map[string]interface{}{
			"database_healthy":  dbHealthy,
			"valuation_healthy": valuationHealthy,
			"paused":            ws.vault.Paused(),
			"total_assets":      totalAssets,
			"total_supply":      ws.vault.TotalSupply().String(),
		},
	}

	statusCode := http.StatusOK
	if overallStatus != "OK" {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetVaultSummary returns vault-wide statistics
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	totalAssets := "unavailable"
	if total, err := ws.vault.TotalAssets(); err == nil {
		totalAssets = total.String()
	} else {
		webLogger.Error().Err(err).Msg("Valuation failed while building vault summary")
	}

	params := ws.vault.Params()
	response := map[string]interface{}{
		"address":            ws.vault.Address(),
		"paused":             ws.vault.Paused(),
		"total_assets":       totalAssets,
		"idle_balance":       ws.vault.IdleBalance().String(),
		"total_supply":       ws.vault.TotalSupply().String(),
		"current_apy_bps":    ws.vault.CurrentAPY(),
		"last_harvest":       ws.vault.LastHarvest(),
		"min_deposit":        params.MinDeposit.String(),
		"max_total_assets":   params.MaxTotalAssets.String(),
		"withdrawal_fee_bps": params.WithdrawalFeeBps,
		"fee_recipient":      params.FeeRecipient,
		"harvest_interval":   params.HarvestInterval.String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetStrategies returns the registered strategies and their weights
func (ws *WebServer) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	strategies := ws.vault.Strategies()

	response := map[string]interface{}{
		"strategies": strategies,
		"count":      len(strategies),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetHarvests returns recent persisted harvest receipts
func (ws *WebServer) handleGetHarvests(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	harvests, err := state.LoadRecentHarvests(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load harvest receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve harvests")
		return
	}

	response := map[string]interface{}{
		"harvests": harvests,
		"count":    len(harvests),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleConvert previews share/asset conversion at the current exchange rate.
// Exactly one of ?assets= or ?shares= must be provided.
func (ws *WebServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	assetsStr := r.URL.Query().Get("assets")
	sharesStr := r.URL.Query().Get("shares")

	switch {
	case assetsStr != "" && sharesStr == "":
		assets, ok := sdkmath.NewIntFromString(assetsStr)
		if !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid assets amount")
			return
		}
		shares, err := ws.vault.ConvertToShares(assets)
		if err != nil {
			ws.handleVaultError(w, err)
			return
		}
		ws.writeJSONResponse(w, http.StatusOK, map[string]string{
			"assets": assets.String(),
			"shares": shares.String(),
		})
	case sharesStr != "" && assetsStr == "":
		shares, ok := sdkmath.NewIntFromString(sharesStr)
		if !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares amount")
			return
		}
		assets, err := ws.vault.ConvertToAssets(shares)
		if err != nil {
			ws.handleVaultError(w, err)
			return
		}
		ws.writeJSONResponse(w, http.StatusOK, map[string]string{
			"shares": shares.String(),
			"assets": assets.String(),
		})
	default:
		ws.writeErrorResponse(w, http.StatusBadRequest, "Provide exactly one of 'assets' or 'shares'")
	}
}

// handleGetHolder returns a holder's share balance and its asset value
func (ws *WebServer) handleGetHolder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	holder := types.Address(vars["address"])

	shares := ws.vault.BalanceOf(holder)
	assets, err := ws.vault.ConvertToAssets(shares)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}

	response := map[string]interface{}{
		"address":     holder,
		"shares":      shares.String(),
		"asset_value": assets.String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// depositRequest covers deposit and mint bodies.
type depositRequest struct {
	Caller   types.Address `json:"caller"`
	Receiver types.Address `json:"receiver"`
	Assets   string        `json:"assets,omitempty"`
	Shares   string        `json:"shares,omitempty"`
}

// withdrawRequest covers withdraw, redeem and emergency-withdraw bodies.
type withdrawRequest struct {
	Caller   types.Address `json:"caller"`
	Receiver types.Address `json:"receiver"`
	Owner    types.Address `json:"owner"`
	Assets   string        `json:"assets,omitempty"`
	Shares   string        `json:"shares,omitempty"`
}

func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	assets, ok := sdkmath.NewIntFromString(req.Assets)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid assets amount")
		return
	}

	shares, err := ws.vault.Deposit(req.Caller, req.Receiver, assets)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{
		"assets": assets.String(),
		"shares": shares.String(),
	})
}

func (ws *WebServer) handleMint(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	shares, ok := sdkmath.NewIntFromString(req.Shares)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares amount")
		return
	}

	assets, err := ws.vault.Mint(req.Caller, req.Receiver, shares)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{
		"assets": assets.String(),
		"shares": shares.String(),
	})
}

func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	assets, ok := sdkmath.NewIntFromString(req.Assets)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid assets amount")
		return
	}

	shares, err := ws.vault.Withdraw(req.Caller, req.Receiver, req.Owner, assets)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{
		"assets": assets.String(),
		"shares": shares.String(),
	})
}

func (ws *WebServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	shares, ok := sdkmath.NewIntFromString(req.Shares)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares amount")
		return
	}

	assets, err := ws.vault.Redeem(req.Caller, req.Receiver, req.Owner, shares)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{
		"assets": assets.String(),
		"shares": shares.String(),
	})
}

func (ws *WebServer) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	assets, err := ws.vault.EmergencyWithdraw(req.Caller, req.Receiver)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{
		"assets": assets.String(),
	})
}

type shareTransferRequest struct {
	Caller  types.Address `json:"caller"`
	To      types.Address `json:"to,omitempty"`
	Spender types.Address `json:"spender,omitempty"`
	Amount  string        `json:"amount"`
}

func (ws *WebServer) handleTransferShares(w http.ResponseWriter, r *http.Request) {
	var req shareTransferRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	if err := ws.vault.TransferShares(req.Caller, req.To, amount); err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (ws *WebServer) handleApproveShares(w http.ResponseWriter, r *http.Request) {
	var req shareTransferRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	if err := ws.vault.ApproveShares(req.Caller, req.Spender, amount); err != nil {
		ws.handleVaultError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

type adminRequest struct {
	Caller   types.Address `json:"caller"`
	Strategy types.Address `json:"strategy,omitempty"`
	Weight   uint32        `json:"weight,omitempty"`
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	if err := ws.vault.Pause(req.Caller); err != nil {
		ws.handleVaultError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]bool{"paused": true})
}

func (ws *WebServer) handleUnpause(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	if err := ws.vault.Unpause(req.Caller); err != nil {
		ws.handleVaultError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]bool{"paused": false})
}

func (ws *WebServer) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	if err := ws.vault.Rebalance(req.Caller); err != nil {
		ws.handleVaultError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]string{
		"idle_balance": ws.vault.IdleBalance().String(),
	})
}

func (ws *WebServer) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	report, err := ws.vault.HarvestAll(req.Caller)
	if err != nil {
		ws.handleVaultError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, report)
}

func (ws *WebServer) handleUpdateAllocation(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	if err := ws.vault.UpdateAllocation(req.Caller, req.Strategy, req.Weight); err != nil {
		ws.handleVaultError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"strategy": req.Strategy,
		"weight":   req.Weight,
	})
}

func (ws *WebServer) handleRemoveStrategy(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	if err := ws.vault.RemoveStrategy(req.Caller, req.Strategy); err != nil {
		ws.handleVaultError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"strategy": req.Strategy,
		"removed":  true,
	})
}

// parametersRequest carries optional parameter updates; only fields present
// in the body are applied.
type parametersRequest struct {
	Caller                 types.Address `json:"caller"`
	MinDeposit             *string       `json:"min_deposit,omitempty"`
	MaxTotalAssets         *string       `json:"max_total_assets,omitempty"`
	WithdrawalFeeBps       *uint32       `json:"withdrawal_fee_bps,omitempty"`
	FeeRecipient           *string       `json:"fee_recipient,omitempty"`
	HarvestIntervalSeconds *int64        `json:"harvest_interval_seconds,omitempty"`
}

func (ws *WebServer) handleSetParameters(w http.ResponseWriter, r *http.Request) {
	var req parametersRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	if req.MinDeposit != nil {
		minDeposit, ok := sdkmath.NewIntFromString(*req.MinDeposit)
		if !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid min_deposit")
			return
		}
		if err := ws.vault.SetMinDeposit(req.Caller, minDeposit); err != nil {
			ws.handleVaultError(w, err)
			return
		}
	}
	if req.MaxTotalAssets != nil {
		maxTotal, ok := sdkmath.NewIntFromString(*req.MaxTotalAssets)
		if !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid max_total_assets")
			return
		}
		if err := ws.vault.SetMaxTotalAssets(req.Caller, maxTotal); err != nil {
			ws.handleVaultError(w, err)
			return
		}
	}
	if req.WithdrawalFeeBps != nil {
		if err := ws.vault.SetWithdrawalFee(req.Caller, *req.WithdrawalFeeBps); err != nil {
			ws.handleVaultError(w, err)
			return
		}
	}
	if req.FeeRecipient != nil {
		if err := ws.vault.SetFeeRecipient(req.Caller, types.Address(*req.FeeRecipient)); err != nil {
			ws.handleVaultError(w, err)
			return
		}
	}
	if req.HarvestIntervalSeconds != nil {
		interval := time.Duration(*req.HarvestIntervalSeconds) * time.Second
		if err := ws.vault.SetHarvestInterval(req.Caller, interval); err != nil {
			ws.handleVaultError(w, err)
			return
		}
	}

	ws.writeJSONResponse(w, http.StatusOK, ws.vault.Params())
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (ws *WebServer) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// handleVaultError maps vault error categories onto HTTP status codes.
func (ws *WebServer) handleVaultError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrValidation):
		statusCode = http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		statusCode = http.StatusForbidden
	case errors.Is(err, types.ErrState):
		statusCode = http.StatusConflict
	case errors.Is(err, types.ErrExternal):
		statusCode = http.StatusBadGateway
	}
	ws.writeErrorResponse(w, statusCode, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
