// Package httpapi exposes the read proxy, the phase projection and the
// broadcast hub over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"auction-relay/internal/metadata"
	"auction-relay/internal/observability"
	"auction-relay/internal/proxy"
)

// Reader is the read side the handlers serve.
type Reader interface {
	AuctionState(ctx context.Context) (*proxy.AuctionState, error)
	AuctionHistory(ctx context.Context) (*proxy.AuctionHistory, error)
	TokenURI(ctx context.Context, tokenID string) (*proxy.TokenURI, error)
	Metadata(tokenID string) (*metadata.Metadata, error)
	NFTPreview(ctx context.Context, tokenID string) (*metadata.Preview, error)
	UserDashboard(ctx context.Context, address string) (*proxy.UserDashboard, error)
	Activity(ctx context.Context, address string, limit int) (*proxy.Activity, error)
	AuctionEvents(ctx context.Context, auctionID string) (*proxy.AuctionEvents, error)
	Phase(ctx context.Context, viewer string) (*proxy.PhaseView, error)
}

// Status is the /status document.
type Status struct {
	Status                  string    `json:"status"`
	Uptime                  string    `json:"uptime"`
	StartedAt               time.Time `json:"started_at"`
	Contract                string    `json:"contract"`
	EventSource             string    `json:"event_source"`
	HighestBlock            uint64    `json:"highest_block"`
	EventsDispatched        int64     `json:"events_dispatched"`
	BroadcastClients        int       `json:"broadcast_clients"`
	JournalEnabled          bool      `json:"journal_enabled"`
	RelayBackends           int       `json:"relay_backends"`
	WalletConnectConfigured bool      `json:"walletconnect_configured"`
}

// Options configures the Handler.
type Options struct {
	Reader Reader
	// WebSocket serves /ws when set.
	WebSocket http.Handler
	// Status builds the /status document when set.
	Status func() Status
	Logger *log.Logger
}

// Handler contains the HTTP request handlers.
type Handler struct {
	reader Reader
	ws     http.Handler
	status func() Status
	logger *log.Logger
}

// NewHandler creates a new Handler.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Handler{
		reader: opts.Reader,
		ws:     opts.WebSocket,
		status: opts.Status,
		logger: opts.Logger,
	}
}

// Routes configures all HTTP routes.
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	if h.ws != nil {
		router.Handle("/ws", h.ws).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auction-state", h.AuctionState).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/auction-history", h.AuctionHistory).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/metadata/{tokenId}", h.Metadata).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/token-uri/{tokenId}", h.TokenURI).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/nft-preview/{tokenId}", h.NFTPreview).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/user-dashboard", h.UserDashboard).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/activity", h.Activity).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/auction-events/{auctionId}", h.AuctionEvents).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/phase", h.Phase).Methods(http.MethodGet, http.MethodOptions)
	api.Use(corsMiddleware)

	router.Use(h.loggingMiddleware)
	router.Use(metricsMiddleware)

	return router
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns server status as JSON.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondJSON(w, http.StatusOK, Status{Status: "running"})
		return
	}
	respondJSON(w, http.StatusOK, h.status())
}

// AuctionState serves the current auction snapshot.
func (h *Handler) AuctionState(w http.ResponseWriter, r *http.Request) {
	state, err := h.reader.AuctionState(r.Context())
	if err != nil {
		h.readError(w, err, "Failed to fetch auction state")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// AuctionHistory serves the most recent past auctions.
func (h *Handler) AuctionHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.reader.AuctionHistory(r.Context())
	if err != nil {
		h.readError(w, err, "Failed to fetch auction history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Metadata serves synthesized metadata for a token.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.reader.Metadata(mux.Vars(r)["tokenId"])
	if err != nil {
		h.readError(w, err, "Failed to build metadata")
		return
	}
	respondJSON(w, http.StatusOK, md)
}

// TokenURI serves tokenURI(tokenId).
func (h *Handler) TokenURI(w http.ResponseWriter, r *http.Request) {
	uri, err := h.reader.TokenURI(r.Context(), mux.Vars(r)["tokenId"])
	if err != nil {
		h.readError(w, err, "Failed to read tokenURI")
		return
	}
	respondJSON(w, http.StatusOK, uri)
}

// NFTPreview serves the metadata behind tokenURI(tokenId). Unreachable
// metadata still answers 200 with placeholder set.
func (h *Handler) NFTPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.reader.NFTPreview(r.Context(), mux.Vars(r)["tokenId"])
	if err != nil {
		h.readError(w, err, "Failed to load NFT preview")
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// UserDashboard serves the balance and won NFTs of ?address=.
func (h *Handler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		respondError(w, http.StatusBadRequest, "Address parameter required")
		return
	}

	dashboard, err := h.reader.UserDashboard(r.Context(), address)
	if err != nil {
		h.readError(w, err, "Failed to fetch dashboard data")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// Activity serves the journaled events of ?address=, bounded by ?limit=.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := q.Get("address")
	if address == "" {
		respondError(w, http.StatusBadRequest, "Address parameter required")
		return
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	activity, err := h.reader.Activity(r.Context(), address, limit)
	if err != nil {
		h.readError(w, err, "Failed to fetch activity")
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// AuctionEvents serves the journaled events of one auction.
func (h *Handler) AuctionEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reader.AuctionEvents(r.Context(), mux.Vars(r)["auctionId"])
	if err != nil {
		h.readError(w, err, "Failed to fetch auction events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// Phase serves the phase projection for ?viewer=.
func (h *Handler) Phase(w http.ResponseWriter, r *http.Request) {
	view, err := h.reader.Phase(r.Context(), r.URL.Query().Get("viewer"))
	if err != nil {
		h.readError(w, err, "Failed to project phase")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// readError maps proxy errors onto status codes. Validation errors never
// reach the contract and carry no details.
func (h *Handler) readError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, proxy.ErrInvalidTokenID):
		respondError(w, http.StatusBadRequest, "Invalid tokenId")
	case errors.Is(err, proxy.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "Invalid address")
	case errors.Is(err, proxy.ErrJournalDisabled):
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: message, Details: err.Error()})
	default:
		h.logger.Printf("%s: %v", message, err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: message, Details: err.Error()})
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, errorBody{Error: message})
}
