// Package api is the presentation boundary: JSON HTTP endpoints for reading
// the world snapshot and issuing player commands, plus a WebSocket stream
// pushing the snapshot after every change. GET endpoints are public
// (read-only observation); the speed control requires a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/talgya/borderline/internal/catalog"
	"github.com/talgya/borderline/internal/engine"
	"github.com/talgya/borderline/internal/game"
)

// Server serves the game over HTTP.
type Server struct {
	Session  *game.Session
	Eng      *engine.Engine
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for the speed endpoint. Empty = disabled.

	limiter *RateLimiter
}

// Router builds the HTTP handler. Split from Start so tests can drive it
// with httptest.
func (s *Server) Router() http.Handler {
	commandLimiter := NewRateLimiter(120, time.Minute)
	s.limiter = commandLimiter

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Public reads.
	v1.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	v1.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)
	v1.HandleFunc("/risk", s.handleRiskPreview).Methods(http.MethodGet)
	v1.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	v1.HandleFunc("/notifications", s.handleNotifications).Methods(http.MethodGet)

	// Player commands.
	v1.HandleFunc("/market/buy", RateLimitMiddleware(commandLimiter, s.handleBuy)).Methods(http.MethodPost)
	v1.HandleFunc("/shipments", RateLimitMiddleware(commandLimiter, s.handleLaunch)).Methods(http.MethodPost)
	v1.HandleFunc("/pool/deposit", RateLimitMiddleware(commandLimiter, s.handleDeposit)).Methods(http.MethodPost)
	v1.HandleFunc("/pool/withdraw", RateLimitMiddleware(commandLimiter, s.handleWithdraw)).Methods(http.MethodPost)
	v1.HandleFunc("/tech/unlock", RateLimitMiddleware(commandLimiter, s.handleUnlock)).Methods(http.MethodPost)

	// Admin control plane.
	v1.HandleFunc("/speed", s.adminOnly(s.handleSpeed)).Methods(http.MethodGet, http.MethodPost)

	// Snapshot stream.
	if s.Hub != nil {
		v1.HandleFunc("/stream", s.Hub.ServeWS).Methods(http.MethodGet)
	}

	return corsMiddleware(r)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	handler := s.Router()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Close stops the background goroutines the server owns: the rate limiter
// cleanup and, when wired, the WebSocket hub.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are always
// allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Snapshot())
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.Session.Catalog()

	commodities := make([]catalog.Commodity, 0, len(cat.CommodityOrder))
	for _, id := range cat.CommodityOrder {
		commodities = append(commodities, cat.Commodities[id])
	}
	routes := make([]catalog.Route, 0, len(cat.RouteOrder))
	for _, id := range cat.RouteOrder {
		routes = append(routes, cat.Routes[id])
	}
	strategies := make([]catalog.Strategy, 0, len(cat.StrategyOrder))
	for _, id := range cat.StrategyOrder {
		strategies = append(strategies, cat.Strategies[id])
	}
	techs := make([]catalog.TechNode, 0, len(cat.TechOrder))
	for _, id := range cat.TechOrder {
		techs = append(techs, cat.TechNodes[id])
	}

	writeJSON(w, map[string]any{
		"commodities": commodities,
		"routes":      routes,
		"strategies":  strategies,
		"tech_nodes":  techs,
	})
}

// handleRiskPreview lets the frontend show the seizure probability for an
// unlaunched configuration. Side-effect free.
func (s *Server) handleRiskPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	commodity := catalog.CommodityType(q.Get("commodity"))
	route := catalog.RouteType(q.Get("route"))
	strategy := catalog.StrategyType(q.Get("strategy"))
	amount, err := strconv.Atoi(q.Get("amount"))
	if err != nil || amount <= 0 {
		http.Error(w, "amount must be a positive integer", http.StatusBadRequest)
		return
	}

	cat := s.Session.Catalog()
	if _, ok := cat.Commodities[commodity]; !ok {
		http.Error(w, "unknown commodity", http.StatusBadRequest)
		return
	}
	if _, ok := cat.Routes[route]; !ok {
		http.Error(w, "unknown route", http.StatusBadRequest)
		return
	}
	if _, ok := cat.Strategies[strategy]; !ok {
		http.Error(w, "unknown strategy", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]float64{
		"risk": s.Session.PreviewRisk(commodity, route, strategy, amount),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	snap := s.Session.Snapshot()
	writeJSON(w, map[string]any{
		"active":  snap.ActiveShipments,
		"history": snap.ShipmentHistory,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Snapshot().Notifications)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commodity catalog.CommodityType `json:"commodity"`
		Amount    int                   `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.Session.BuyCommodity(req.Commodity, req.Amount))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commodity catalog.CommodityType `json:"commodity"`
		Route     catalog.RouteType     `json:"route"`
		Strategy  catalog.StrategyType  `json:"strategy"`
		Amount    int                   `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.Session.LaunchShipment(req.Commodity, req.Route, req.Strategy, req.Amount))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.Session.DepositToPool(amount))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.Session.WithdrawFromPool(amount))
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return 0, false
	}
	return req.Amount, true
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID string `json:"node_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.Session.UnlockTech(req.NodeID))
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// writeResult maps a command result to HTTP: accepted commands return the
// new snapshot, rejections return 409 with the reason. The core itself stays
// a silent no-op either way.
func (s *Server) writeResult(w http.ResponseWriter, res game.Result) {
	if !res.OK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(res)
		return
	}
	writeJSON(w, map[string]any{
		"result": res,
		"state":  s.Session.Snapshot(),
	})
}

// checkBearerToken returns true if the request has a valid admin bearer
// token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on POST requests; GETs pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no BORDERLINE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
