// Package handler exposes the HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"netboard/internal/discovery"
	"netboard/internal/domain"
	"netboard/internal/repository"
	"netboard/internal/service"
	"netboard/internal/terminal"
)

// Sweeper runs a network discovery sweep.
type Sweeper interface {
	Sweep(ctx context.Context, cidr string) ([]discovery.Found, error)
}

// TerminalBridge runs one-shot remote commands.
type TerminalBridge interface {
	RunCommand(ctx context.Context, addr string, port int, creds terminal.Credentials, command string) (*terminal.CommandResult, error)
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// BoardHandler handles board API requests.
type BoardHandler struct {
	svc      *service.BoardService
	sweeper  Sweeper
	terminal TerminalBridge
	logger   *logrus.Logger
}

// NewBoardHandler creates a handler. sweeper and term may be nil; the
// corresponding endpoints then report 503.
func NewBoardHandler(svc *service.BoardService, sweeper Sweeper, term TerminalBridge, logger *logrus.Logger) *BoardHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BoardHandler{svc: svc, sweeper: sweeper, terminal: term, logger: logger}
}

// Register attaches all routes to the mux.
func (h *BoardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/board", h.GetBoard)
	mux.HandleFunc("PUT /api/board", h.SaveBoard)

	mux.HandleFunc("POST /api/hosts", h.UpsertHost)
	mux.HandleFunc("PUT /api/hosts/{id}", h.UpsertHost)
	mux.HandleFunc("DELETE /api/hosts/{id}", h.DeleteHost)
	mux.HandleFunc("PUT /api/hosts/{id}/position", h.MoveHost)

	mux.HandleFunc("GET /api/status", h.GetStatus)

	mux.HandleFunc("GET /api/monitoring", h.GetSettings)
	mux.HandleFunc("PUT /api/monitoring", h.UpdateSettings)

	mux.HandleFunc("POST /api/discover", h.Discover)

	mux.HandleFunc("POST /api/import/{format}", h.Import)
	mux.HandleFunc("GET /api/export/{format}", h.Export)

	mux.HandleFunc("POST /api/hosts/{id}/exec", h.Exec)
}

// GetBoard returns the full board document.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Board(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to load board")
		h.writeError(w, "Failed to load board", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, board, http.StatusOK)
}

// SaveBoard replaces the full board document.
func (h *BoardHandler) SaveBoard(w http.ResponseWriter, r *http.Request) {
	var board domain.Board
	if err := json.NewDecoder(r.Body).Decode(&board); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.SaveBoard(r.Context(), &board); err != nil {
		h.writeError(w, "Failed to save board", err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, board, http.StatusOK)
}

// UpsertHost creates or updates a host. The path id, when present, wins
// over the body id.
func (h *BoardHandler) UpsertHost(w http.ResponseWriter, r *http.Request) {
	var host domain.Host
	if err := json.NewDecoder(r.Body).Decode(&host); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if id := r.PathValue("id"); id != "" {
		host.ID = id
	}

	if err := h.svc.UpsertHost(r.Context(), host); err != nil {
		h.writeError(w, "Failed to save host", err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, host, http.StatusOK)
}

// DeleteHost removes a host.
func (h *BoardHandler) DeleteHost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Invalid host ID", "Host ID is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteHost(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to delete host", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveHost updates a host's position.
func (h *BoardHandler) MoveHost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var pos struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.MoveHost(r.Context(), id, pos.X, pos.Y); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to move host", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus returns the latest monitoring snapshot, or 204 when no tick
// has completed yet.
func (h *BoardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Status()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, snap, http.StatusOK)
}

// GetSettings returns the monitoring settings.
func (h *BoardHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings(r.Context())
	if err != nil {
		h.writeError(w, "Failed to load settings", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, settings, http.StatusOK)
}

// UpdateSettings replaces the monitoring settings. Out-of-range values
// are clamped, and the clamped result is returned.
func (h *BoardHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.MonitoringSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	applied, err := h.svc.UpdateSettings(r.Context(), settings)
	if err != nil {
		h.writeError(w, "Failed to update settings", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, applied, http.StatusOK)
}

// Discover sweeps a CIDR range and optionally merges the results into the
// board.
func (h *BoardHandler) Discover(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		h.writeError(w, "Discovery unavailable", "no sweeper configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Target string `json:"target"`
		Apply  bool   `json:"apply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		h.writeError(w, "Invalid target", "target CIDR is required", http.StatusBadRequest)
		return
	}

	found, err := h.sweeper.Sweep(r.Context(), req.Target)
	if err != nil {
		h.writeError(w, "Sweep failed", err.Error(), http.StatusBadRequest)
		return
	}

	resp := struct {
		Found []discovery.Found `json:"found"`
		Added []domain.Host     `json:"added,omitempty"`
	}{Found: found}

	if req.Apply {
		added, err := h.svc.ApplyDiscovered(r.Context(), found)
		if err != nil {
			h.writeError(w, "Failed to apply results", err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Added = added
	}

	h.writeJSON(w, resp, http.StatusOK)
}

// Import replaces the board from an uploaded document.
func (h *BoardHandler) Import(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Import(r.Context(), r.Body, r.PathValue("format"))
	if err != nil {
		h.writeError(w, "Import failed", err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, board, http.StatusOK)
}

// Export streams the board in the requested format.
func (h *BoardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")

	switch strings.ToLower(format) {
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "yaml", "yml":
		w.Header().Set("Content-Type", "application/yaml")
	default:
		h.writeError(w, "Unsupported format", format, http.StatusBadRequest)
		return
	}

	if err := h.svc.Export(r.Context(), w, format); err != nil {
		h.logger.WithError(err).Error("export failed")
	}
}

// Exec runs a one-shot command on a host over SSH. Credentials travel in
// the request and are not stored.
func (h *BoardHandler) Exec(w http.ResponseWriter, r *http.Request) {
	if h.terminal == nil {
		h.writeError(w, "Terminal unavailable", "no terminal bridge configured", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	board, err := h.svc.Board(r.Context())
	if err != nil {
		h.writeError(w, "Failed to load board", err.Error(), http.StatusInternalServerError)
		return
	}

	host := board.HostByID(id)
	if host == nil {
		h.writeError(w, "Not found", "unknown host "+id, http.StatusNotFound)
		return
	}
	if host.Address == "" {
		h.writeError(w, "Host has no address", id, http.StatusBadRequest)
		return
	}

	var req struct {
		Command     string               `json:"command"`
		Credentials terminal.Credentials `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if req.Credentials.User == "" && host.SSH != nil {
		req.Credentials.User = host.SSH.User
	}
	port := 22
	if host.SSH != nil && host.SSH.Port > 0 {
		port = host.SSH.Port
	}

	result, err := h.terminal.RunCommand(r.Context(), host.Address, port, req.Credentials, req.Command)
	if err != nil {
		h.writeError(w, "Command failed", err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

func (h *BoardHandler) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
	}
}

func (h *BoardHandler) writeError(w http.ResponseWriter, msg, details string, status int) {
	h.writeJSON(w, ErrorResponse{Error: msg, Details: details}, status)
}
