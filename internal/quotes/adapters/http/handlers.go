package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/quotes/internal/quotes/app"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// Handler exposes HTTP endpoints for quote operations.
type Handler struct {
	service *app.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the quote handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/quotes", h.handleQuotes)
	mux.HandleFunc("/v1/quotes/latest", h.latestBatch)
	mux.HandleFunc("/v1/documents/", h.handleDocument)
}

func (h *Handler) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.createQuote(w, r)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	parts := strings.Split(trimmed, "/")

	switch {
	case len(parts) == 2 && parts[1] == "latest":
		h.getLatest(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "quotes":
		h.listVersions(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "quotes":
		version, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "version must be an integer")
			return
		}
		h.getQuote(w, r, parts[0], version)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}

	var payload app.CreateQuoteInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := h.service.CreateQuote(r.Context(), payload, idemKey)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrKeyReuse):
			writeError(w, http.StatusConflict, "idempotency key was used with a different payload")
		case errors.Is(err, ports.ErrRequestInProgress):
			writeError(w, http.StatusConflict, "a request with this idempotency key is in progress")
		case errors.Is(err, ports.ErrRetryExhausted):
			writeError(w, http.StatusServiceUnavailable, "could not assign a version, retry with the same idempotency key")
		case errors.Is(err, ports.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	quote := result.Quote
	if result.Replayed {
		w.Header().Set("Idempotency-Status", "replayed")
		writeJSON(w, http.StatusOK, map[string]any{"quote": quote})
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/documents/%s/quotes/%d", quote.DocumentID, quote.Version))
	w.Header().Set("Idempotency-Status", "created")
	writeJSON(w, http.StatusCreated, map[string]any{"quote": quote})
}

func (h *Handler) getLatest(w http.ResponseWriter, r *http.Request, documentID string) {
	quote, err := h.service.GetLatest(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active quote for document")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": quote})
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request, documentID string, version int64) {
	quote, err := h.service.GetQuote(r.Context(), documentID, version)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quote not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": quote})
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request, documentID string) {
	quotes, err := h.service.ListVersions(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes, "count": len(quotes)})
}

func (h *Handler) latestBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := r.URL.Query().Get("document_ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "document_ids query parameter required")
		return
	}

	var documentIDs []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			documentIDs = append(documentIDs, id)
		}
	}

	quotes, err := h.service.GetLatestBatch(r.Context(), documentIDs)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes, "count": len(quotes)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
