package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/cart"
	"github.com/lionarc/dein-p3-markt/internal/scan"
)

type Scanner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Confirm(ctx context.Context) (cart.AddResult, error)
	Cancel() error
	Acknowledge() error
	Snapshot() scan.View
}

// CodeSource is fed by the client-side camera.
type CodeSource interface {
	FailNextStart(err error)
	Push(text string) bool
}

type ScanHandler struct {
	scanner Scanner
	source  CodeSource
	timeout time.Duration
}

func NewScanHandler(scanner Scanner, source CodeSource, timeout time.Duration) *ScanHandler {
	return &ScanHandler{
		scanner: scanner,
		source:  source,
		timeout: timeout,
	}
}

type StartScanRequestDTO struct {
	// CameraError is set by clients that could not open the camera.
	CameraError string `json:"camera_error"`
}

type DecodedRequestDTO struct {
	Code string `json:"code"`
}

type ConfirmResponse struct {
	cart.AddResult
	Scan scan.View `json:"scan"`
}

func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scanner.Snapshot())
}

func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StartScanRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CameraError != "" {
		h.source.FailNextStart(errors.New(req.CameraError))
	}

	if err := h.scanner.Start(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.scanner.Snapshot())
}

func (h *ScanHandler) Stop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.scanner.Stop(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.scanner.Snapshot())
}

// Decoded hands a code read by the camera to the scanner. The lookup runs
// before the response is written, so the returned view shows its outcome.
func (h *ScanHandler) Decoded(w http.ResponseWriter, r *http.Request) {
	var req DecodedRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid_code", "code is required")
		return
	}

	if !h.source.Push(req.Code) {
		respondError(w, http.StatusConflict, "not_scanning", "scanner is not scanning")
		return
	}
	respondJSON(w, http.StatusOK, h.scanner.Snapshot())
}

func (h *ScanHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.scanner.Confirm(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ConfirmResponse{AddResult: result, Scan: h.scanner.Snapshot()})
}

func (h *ScanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.scanner.Cancel(); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.scanner.Snapshot())
}

func (h *ScanHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.scanner.Acknowledge(); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.scanner.Snapshot())
}
