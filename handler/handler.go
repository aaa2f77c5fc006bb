package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tokens-report/internal/usecase"
)

const (
	ModeConsolidated = "consolidated"
	ModeHistorical   = "historical"
)

// Response mirrors the Lambda proxy integration shape so the same binary
// serves scheduled invocations and manual console runs.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

type reportRunner interface {
	Run(ctx context.Context) (usecase.Summary, error)
	RunHistorical(ctx context.Context) (usecase.Summary, error)
}

type request struct {
	Mode string `json:"mode"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

type Handler struct {
	svc reportRunner
	log *slog.Logger
}

func NewHandler(svc reportRunner, log *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: report service must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}, nil
}

// Handle runs the report selected by the payload's mode field. An empty
// or absent payload runs the consolidated report. Failures are reported
// in the response body; the Lambda invocation itself always succeeds so
// the scheduler does not retry a partially published table.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (Response, error) {
	mode, err := parseMode(raw)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{
			Error:     "invalid_request",
			Reason:    err.Error(),
			Timestamp: now(),
		}), nil
	}

	var summary usecase.Summary
	switch mode {
	case ModeHistorical:
		summary, err = h.svc.RunHistorical(ctx)
	default:
		summary, err = h.svc.Run(ctx)
	}
	if err != nil {
		h.log.Error("report run failed", "mode", mode, "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{
			Error:     errorCode(err),
			Reason:    err.Error(),
			Timestamp: now(),
		}), nil
	}
	return jsonResponse(http.StatusOK, summary), nil
}

func parseMode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return ModeConsolidated, nil
	}
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		// Scheduled events carry arbitrary payloads; only reject
		// payloads that name a mode we do not know.
		return ModeConsolidated, nil
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	switch mode {
	case "", ModeConsolidated:
		return ModeConsolidated, nil
	case ModeHistorical:
		return ModeHistorical, nil
	default:
		return "", errors.New("unknown mode: " + req.Mode)
	}
}

func errorCode(err error) string {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return string(ucErr.Code)
	}
	return string(usecase.ErrorInternal)
}

func jsonResponse(status int, body any) Response {
	data, err := json.Marshal(body)
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       `{"error":"INTERNAL_ERROR","reason":"response_encode_error"}`,
		}
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(data),
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
