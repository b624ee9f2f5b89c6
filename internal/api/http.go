/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/withdrawal"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	headerAdminKey        = "X-Admin-Key"
	headerInitData        = "X-Telegram-Init-Data"
	defaultInitDataMaxAge = 24 * time.Hour
	maxBodyBytes          = 64 << 10
)

type ctxKey int

const webAppUserKey ctxKey = iota

// HTTPConfig controls authentication of the HTTP surface. With a BotToken
// set, every user route requires signed init data.
type HTTPConfig struct {
	AdminKey       string
	BotToken       string
	InitDataMaxAge time.Duration
}

// Handler exposes LedgerService over JSON/HTTP for the Mini App and admins
type Handler struct {
	svc *LedgerService
	cfg HTTPConfig
	now func() time.Time
}

func NewHandler(svc *LedgerService, cfg HTTPConfig) *Handler {
	if cfg.InitDataMaxAge == 0 {
		cfg.InitDataMaxAge = defaultInitDataMaxAge
	}
	return &Handler{svc: svc, cfg: cfg, now: time.Now}
}

// Routes returns the request multiplexer
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)

	mux.Handle("POST /api/users", h.user(h.registerUser))
	mux.Handle("GET /api/users/{id}", h.user(h.getProfile))
	mux.Handle("POST /api/users/{id}/tap", h.user(h.tap))
	mux.Handle("POST /api/users/{id}/vip", h.user(h.activateVip))
	mux.Handle("GET /api/users/{id}/withdrawals", h.user(h.listUserWithdrawals))
	mux.Handle("POST /api/users/{id}/withdrawals", h.user(h.requestWithdrawal))
	mux.Handle("GET /api/users/{id}/ledger", h.user(h.ledger))

	mux.Handle("GET /api/admin/withdrawals", h.admin(h.listWithdrawals))
	mux.Handle("POST /api/admin/withdrawals/{id}/process", h.admin(h.processWithdrawal))
	mux.Handle("GET /api/admin/settings", h.admin(h.getSettings))
	mux.Handle("PUT /api/admin/settings", h.admin(h.updateSettings))
	mux.Handle("GET /api/admin/stats", h.admin(h.stats))
	mux.Handle("POST /api/admin/sweep", h.admin(h.sweep))
	return h.logRequests(mux)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserId     string `json:"user_id"`
		Name       string `json:"name"`
		Username   string `json:"username"`
		StartParam string `json:"start_param"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if tg := webAppUserFrom(r.Context()); tg != nil {
		req.UserId = tg.Id
		req.Name = tg.DisplayName()
		req.Username = tg.Username
		if tg.StartParam != "" {
			req.StartParam = tg.StartParam
		}
	}

	user, created, err := h.svc.EnsureUser(r.Context(), req.UserId, req.Name, req.Username, req.StartParam)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "created": created})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) tap(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Tap(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) activateVip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
		Days int    `json:"days"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.ActivateVip(r.Context(), r.PathValue("id"), req.Tier, req.Days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listUserWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	list, err := h.svc.ListWithdrawals(r.Context(), store.WithdrawalFilter{UserId: r.PathValue("id"), Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": emptyIfNil(list)})
}

func (h *Handler) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Destination string          `json:"upi_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.RequestWithdrawal(r.Context(), r.PathValue("id"), req.Amount, req.Destination)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	entries, err := h.svc.GetLedgerHistory(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": emptyIfNil(entries)})
}

func (h *Handler) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	filter := store.WithdrawalFilter{
		UserId: r.URL.Query().Get("user_id"),
		Status: models.WithdrawalStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	list, err := h.svc.ListWithdrawals(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": emptyIfNil(list)})
}

func (h *Handler) processWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	processed, err := h.svc.ProcessWithdrawal(r.Context(), r.PathValue("id"), models.WithdrawalStatus(req.Status), req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processed)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.svc.GetSettings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	updated, err := h.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	result, credited, err := h.svc.Sweep(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vip": result, "referrals_credited": credited})
}

// user authenticates Mini App calls. Once a bot token is configured the
// caller must present valid init data and may only act on their own id.
// Without a token the routes are open, for local development.
func (h *Handler) user(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.BotToken == "" {
			next(w, r)
			return
		}

		tg, err := ValidateInitData(r.Header.Get(headerInitData), h.cfg.BotToken, h.cfg.InitDataMaxAge, h.now())
		if errors.Is(err, ErrInitDataMissing) {
			writeError(w, http.StatusUnauthorized, ErrInitDataMissing.Error())
			return
		}
		if err != nil {
			zap.L().Warn("Rejected init data", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusUnauthorized, ErrInitDataInvalid.Error())
			return
		}
		if id := r.PathValue("id"); id != "" && id != tg.Id {
			writeError(w, http.StatusForbidden, "user mismatch")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), webAppUserKey, tg)))
	})
}

func (h *Handler) admin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerAdminKey)
		if h.cfg.AdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.AdminKey)) != 1 {
			writeError(w, http.StatusForbidden, "admin key required")
			return
		}
		next(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zap.L().Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func webAppUserFrom(ctx context.Context) *WebAppUser {
	tg, _ := ctx.Value(webAppUserKey).(*WebAppUser)
	return tg
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func paging(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, withdrawal.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrUserNotFound), errors.Is(err, store.ErrWithdrawalNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrWithdrawalNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConcurrentModification):
		writeError(w, http.StatusServiceUnavailable, "busy, retry")
	default:
		zap.L().Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}
