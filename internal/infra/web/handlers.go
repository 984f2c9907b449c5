package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"exam-access-backend/internal/usecase"
)

const createWindow = time.Minute

type createCodeRequest struct {
	UserID        string     `json:"user_id"`
	PaymentAmount int64      `json:"payment_amount"`
	Custom        bool       `json:"custom,omitempty"`
	DurationDays  int        `json:"duration_days,omitempty"`
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := claimsFrom(ctx)

	var req createCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", codeInvalidInput)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", codeInvalidInput)
		return
	}

	issuer := &claims.UserID
	if req.Custom {
		var start time.Time
		if req.StartAt != nil {
			start = *req.StartAt
		}
		code, err := s.codeUC.CreateCustom(ctx, req.UserID, issuer, req.PaymentAmount, req.DurationDays, start, req.EndAt)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, code)
		return
	}

	code, err := s.codeUC.Create(ctx, req.UserID, issuer, req.PaymentAmount)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

type validateRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := claimsFrom(ctx)

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required", codeInvalidInput)
		return
	}

	code, err := s.codeUC.ValidateAndUse(ctx, req.Code, claims.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleMyCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := claimsFrom(ctx)

	codes, err := s.codeUC.GetActiveCodesForUser(ctx, claims.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := claimsFrom(ctx)

	ok, err := s.codeUC.HasActiveEntitlement(ctx, claims.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Entitled bool `json:"entitled"`
	}{Entitled: ok})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var filter usecase.QueryFilter
	if v := q.Get("userId"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("isUsed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "isUsed must be a boolean", codeInvalidInput)
			return
		}
		filter.IsUsed = &b
	}
	if v := q.Get("isBlocked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "isBlocked must be a boolean", codeInvalidInput)
			return
		}
		filter.IsBlocked = &b
	}

	codes, total, err := s.queryUC.ListAccessCodes(ctx, filter, page, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Data  []*usecase.AccessCodeView `json:"data"`
		Total int                       `json:"total"`
		Page  int                       `json:"page"`
		Limit int                       `json:"limit"`
	}{Data: codes, Total: total, Page: max(page, 1), Limit: limit})
}

func (s *Server) handlePaymentTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queryUC.GetPaymentTiers())
}

type toggleBlockRequest struct {
	IsBlocked    bool       `json:"is_blocked"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

func (s *Server) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req toggleBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", codeInvalidInput)
		return
	}

	code, err := s.codeUC.ToggleBlock(ctx, id, req.IsBlocked, req.BlockedUntil)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.codeUC.Delete(ctx, id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deleted bool `json:"deleted"`
	}{Deleted: true})
}
