package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
	"github.com/sumsupee/chatoneverything/internal/storage"
)

// MaxFeedbackBodyBytes caps the feedback request body. Larger bodies
// are rejected with 413 before the JSON decoder sees them.
const MaxFeedbackBodyBytes = 20000

// Rating bounds for a feedback submission.
const (
	MinRating = 1
	MaxRating = 5
)

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type feedbackResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleFeedback accepts one feedback submission per IP per cycle.
// Rejection order: method (405), feedback disabled (403), unresolvable
// client IP (400), oversized body (413), invalid body or rating (400),
// duplicate in this cycle (409).
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeFeedbackError(w, http.StatusMethodNotAllowed,
			apperrors.CodeFeedbackMethodNotAllowed, "POST required")
		return
	}

	if !h.state.Settings().FeedbackEnabled {
		writeFeedbackError(w, http.StatusForbidden,
			apperrors.CodeFeedbackDisabled, "feedback collection is not open")
		return
	}

	ip := h.clientIP(r)
	if ip == "" {
		writeFeedbackError(w, http.StatusBadRequest,
			apperrors.CodeFeedbackNoClientIP, "client address could not be determined")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxFeedbackBodyBytes)
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFeedbackError(w, http.StatusRequestEntityTooLarge,
				apperrors.CodeFeedbackBodyTooLarge, "request body too large")
			return
		}
		writeFeedbackError(w, http.StatusBadRequest,
			apperrors.CodeFeedbackInvalidBody, "invalid JSON body")
		return
	}

	if req.Rating < MinRating || req.Rating > MaxRating {
		writeFeedbackError(w, http.StatusBadRequest,
			apperrors.CodeFeedbackInvalidBody, "rating must be between 1 and 5")
		return
	}

	if !h.moderation.RecordFeedback(ip) {
		writeFeedbackError(w, http.StatusConflict,
			apperrors.CodeFeedbackDuplicate, "feedback already submitted this cycle")
		return
	}

	cycle := h.moderation.FeedbackCycle()
	h.logFeedback(ip, cycle, req)
	h.archiveFeedback(ip, cycle, req)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feedbackResponse{OK: true})
}

func writeFeedbackError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(feedbackResponse{OK: false, Code: code, Message: message})
}

// logFeedback appends the submission to the per-cycle JSONL log.
func (h *Handler) logFeedback(ip string, cycle int, req feedbackRequest) {
	h.mu.Lock()
	logger := h.feedbackLog
	h.mu.Unlock()
	if logger == nil {
		return
	}

	err := logger.Write("feedback", map[string]any{
		"ip":      ip,
		"cycle":   cycle,
		"rating":  req.Rating,
		"comment": req.Comment,
	})
	if err != nil {
		log.Printf("web: feedback log write failed: %v", err)
	}
}

// archiveFeedback stores the submission in the SQLite archive.
func (h *Handler) archiveFeedback(ip string, cycle int, req feedbackRequest) {
	if h.archive == nil {
		return
	}

	err := h.archive.SaveFeedback(&storage.Feedback{
		SessionCode: h.state.Identity().Code(),
		Cycle:       cycle,
		Rating:      req.Rating,
		Comment:     req.Comment,
		IP:          ip,
	})
	if err != nil {
		log.Printf("web: feedback archive failed: %v", err)
	}
}
