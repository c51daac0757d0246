package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	"go.uber.org/zap"
)

const (
	HeaderAPIKey = "X-Api-Key"
	HeaderModel  = "X-Model"

	maxBodySize = 1 << 20

	// больше за один запрос не гоняем, каждый текст - отдельный вызов модели
	maxBatchItems = 100
)

var (
	errBadRequest   = errors.New("bad request")
	errBodyTooLarge = errors.New("request body too large")
	errTooManyItems = errors.New("too many batch items")
)

type Handler struct {
	c *Container
}

func NewHandler(c *Container) *Handler {
	return &Handler{c: c}
}

type analyzeRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type improveRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Trace  bool   `json:"trace,omitempty"`
}

type improveResponse struct {
	Original   string                `json:"original"`
	Improved   string                `json:"improved"`
	Calls      int                   `json:"calls"`
	Iterations []domain.PCVIteration `json:"iterations,omitempty"`
}

type batchRequest struct {
	Items []domain.BatchItem `json:"items,omitempty"`
	// Lines - содержимое файла, одна строка - один текст
	Lines string `json:"lines,omitempty"`
	Demo  bool   `json:"demo,omitempty"`
	Model string `json:"model,omitempty"`
}

type batchResponse struct {
	Rows     []domain.BatchRow `json:"rows"`
	Complete bool              `json:"complete"`
	Error    *batchError       `json:"error,omitempty"`
}

type batchError struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// Analyze handles POST /v1/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := domain.ValidatePrompt(req.Text); err != nil {
		h.writeErr(w, err)
		return
	}

	res, err := h.c.Analyzer.Analyze(r.Context(), h.credential(r), h.model(r, req.Model), req.Text)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Improve handles POST /v1/improve
func (h *Handler) Improve(w http.ResponseWriter, r *http.Request) {
	var req improveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := domain.ValidatePrompt(req.Prompt); err != nil {
		h.writeErr(w, err)
		return
	}

	trace, err := h.c.Refiner.ImproveTrace(r.Context(), h.credential(r), h.model(r, req.Model), req.Prompt)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	resp := improveResponse{Original: trace.Original, Improved: trace.Final, Calls: trace.Calls}
	if req.Trace {
		resp.Iterations = trace.Iterations
	}
	writeJSON(w, http.StatusOK, resp)
}

// Batch handles POST /v1/batch
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := req.Items
	switch {
	case req.Demo:
		items = domain.DemoBatch()
	case len(items) == 0 && req.Lines != "":
		items = domain.ParseBatchLines(req.Lines)
	}
	if len(items) > maxBatchItems {
		h.writeErr(w, fmt.Errorf("%w: got %d, max %d", errTooManyItems, len(items), maxBatchItems))
		return
	}
	for i := range items {
		if items[i].Label == "" {
			items[i].Label = fmt.Sprintf("row_%d", i+1)
		}
		if err := domain.ValidatePrompt(items[i].Text); err != nil {
			h.writeErr(w, fmt.Errorf("%s: %w", items[i].Label, err))
			return
		}
	}

	report, err := h.c.Batch.Run(r.Context(), h.credential(r), h.model(r, req.Model), items)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	resp := batchResponse{Rows: report.Rows, Complete: report.Complete()}
	if resp.Rows == nil {
		resp.Rows = []domain.BatchRow{}
	}
	if report.Failed != nil {
		resp.Error = &batchError{Label: report.Failed.Label, Message: report.Failed.Err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) credential(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key
	}
	return h.c.DefaultAPIKey
}

// model: заголовок важнее тела, тело важнее конфига
func (h *Handler) model(r *http.Request, fromBody string) string {
	if m := strings.TrimSpace(r.Header.Get(HeaderModel)); m != "" {
		return m
	}
	if m := strings.TrimSpace(fromBody); m != "" {
		return m
	}
	return h.c.DefaultModel
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeErr(w, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit))
			return false
		}
		h.writeErr(w, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return false
	}
	return true
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.c.Logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, messageFor(err, status))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPromptTooLong),
		errors.Is(err, errBodyTooLarge),
		errors.Is(err, errTooManyItems):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrAnalysis):
		return http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, llm.ErrTransport), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor не отдаёт клиенту детали внутренних ошибок
func messageFor(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
