package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/mmuslimabdulj/persona-chat/internal/adsession"
	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
	"github.com/mmuslimabdulj/persona-chat/internal/middleware"
)

type anonRequest struct {
	AnonID string `json:"anon_id" validate:"omitempty,max=64"`
}

type adCompleteRequest struct {
	AdSessionID    string `json:"ad_session_id" validate:"required,max=64"`
	WatchedSeconds *int   `json:"watched_seconds" validate:"required,gte=0"`
}

type registeredRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

type likeToggleRequest struct {
	CharacterID string `json:"character_id" validate:"required,max=64"`
	AnonID      string `json:"anon_id" validate:"omitempty,max=64"`
}

// HandleGuestInit bootstraps an anonymous identity, minting one when none is supplied
func (h *Handler) HandleGuestInit(w http.ResponseWriter, r *http.Request) {
	var req anonRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	anonID := h.caller(r, req.AnonID).AnonID
	if anonID == "" {
		anonID = ledger.NewAnonID()
	}

	acc, created, err := h.Ledger.GetOrCreate(r.Context(), domain.Identity{AnonID: anonID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anon_id":           acc.AnonID,
		"credits_remaining": acc.CreditsRemaining,
		"is_new":            created,
	})
}

func (h *Handler) HandleUsageStatus(w http.ResponseWriter, r *http.Request) {
	c := h.caller(r, "")
	acc, _, err := h.Ledger.GetOrCreate(r.Context(), c.Identity())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rules := h.Ads.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"credits_remaining": acc.CreditsRemaining,
		"authenticated":     c.Authenticated(),
		"ad_min_seconds":    rules.MinWatchSeconds,
		"ad_bonus_credits":  rules.BonusCredits,
	})
}

func (h *Handler) HandleAdStart(w http.ResponseWriter, r *http.Request) {
	var req anonRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c := h.caller(r, req.AnonID)

	s, err := h.Ads.Start(r.Context(), c.Identity(), adsession.Metadata{
		UserAgent: r.UserAgent(),
		IP:        middleware.ClientIP(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ad_session_id":  s.ID,
		"ad_min_seconds": h.Ads.Rules().MinWatchSeconds,
	})
}

func (h *Handler) HandleAdComplete(w http.ResponseWriter, r *http.Request) {
	var req adCompleteRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	out, err := h.Ads.Complete(r.Context(), req.AdSessionID, *req.WatchedSeconds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"awarded":               out.Awarded,
		"credits_remaining":     out.CreditsRemaining,
		"estimated_revenue_usd": out.RevenueUSD(),
	})
}

// HandleUserRegistered is called by the identity provider after signup
func (h *Handler) HandleUserRegistered(w http.ResponseWriter, r *http.Request) {
	given := r.Header.Get("X-Internal-Token")
	if h.InternalToken == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.InternalToken)) != 1 {
		h.writeError(w, r, domain.Forbidden("invalid internal token"))
		return
	}

	var req registeredRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	acc, granted, err := h.Ledger.GrantSignupBonus(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":           req.UserID,
		"credits_remaining": acc.CreditsRemaining,
		"granted":           granted,
	})
}

func (h *Handler) HandleLikesStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Likes.Counts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	mine := map[string]bool{}
	if c := h.caller(r, ""); !c.Identity().Empty() {
		acc, _, err := h.Ledger.GetOrCreate(r.Context(), c.Identity())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if mine, err = h.Likes.LikedBy(r.Context(), acc.ID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"likes":       counts,
		"liked_by_me": mine,
	})
}

func (h *Handler) HandleLikeToggle(w http.ResponseWriter, r *http.Request) {
	var req likeToggleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	acc, _, err := h.Ledger.GetOrCreate(r.Context(), h.caller(r, req.AnonID).Identity())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Likes.Toggle(r.Context(), acc.ID, req.CharacterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
