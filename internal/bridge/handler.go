package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"delivery-audit/internal/data"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/reference"
)

const (
	MaxBodySize = 64 * 1024
	Version     = "1.0.0"
)

// Handler accepts reference times from the telematics side and stores them
// for the audit batch.
type Handler struct {
	store reference.Store
	start time.Time
}

func NewHandler(store reference.Store) *Handler {
	return &Handler{store: store, start: time.Now()}
}

func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/references/{ticketId}", h.PutReference).Methods("PUT")
	router.HandleFunc("/api/references/{ticketId}", h.GetReference).Methods("GET")

	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// ReferenceResponse is returned by both reference endpoints.
type ReferenceResponse struct {
	TicketID string          `json:"ticketId"`
	Time     *data.TimeValue `json:"time"`
	Alert    string          `json:"alert,omitempty"`
}

type referenceRequest struct {
	Time string `json:"time"`
}

// PutReference takes either {"time":"HH:MM"} or a raw telematics alert line.
func (h *Handler) PutReference(w http.ResponseWriter, r *http.Request) {
	ticketID := strings.TrimSpace(mux.Vars(r)["ticketId"])
	if ticketID == "" {
		respondError(w, http.StatusBadRequest, "ticket id is required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read body")
		return
	}
	if len(body) > MaxBodySize {
		respondError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	tv, alertName, err := parseReferenceBody(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Put(r.Context(), ticketID, tv); err != nil {
		logger.Error("storing reference failed", "ticket", ticketID, "error", err)
		respondError(w, http.StatusServiceUnavailable, "reference store unavailable")
		return
	}
	logger.Info("reference stored", "ticket", ticketID, "time", tv, "alert", alertName)

	respondJSON(w, http.StatusOK, ReferenceResponse{TicketID: ticketID, Time: &tv, Alert: alertName})
}

func (h *Handler) GetReference(w http.ResponseWriter, r *http.Request) {
	ticketID := mux.Vars(r)["ticketId"]

	tv, err := h.store.Lookup(r.Context(), ticketID)
	if err != nil {
		logger.Error("reading reference failed", "ticket", ticketID, "error", err)
		respondError(w, http.StatusServiceUnavailable, "reference store unavailable")
		return
	}
	if tv == nil {
		respondError(w, http.StatusNotFound, "no reference for ticket")
		return
	}
	respondJSON(w, http.StatusOK, ReferenceResponse{TicketID: ticketID, Time: tv})
}

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.start).String(),
	})
}

func parseReferenceBody(body []byte) (data.TimeValue, string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return data.TimeValue{}, "", errors.New("empty body")
	}
	if strings.HasPrefix(trimmed, "{") {
		var req referenceRequest
		if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
			return data.TimeValue{}, "", errors.New("invalid JSON body")
		}
		tv, err := data.ParseClock(req.Time)
		if err != nil {
			return data.TimeValue{}, "", err
		}
		return tv, "", nil
	}
	alert, err := reference.ParseAlert(trimmed)
	if err != nil {
		return data.TimeValue{}, "", err
	}
	return alert.Time, alert.Name, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
