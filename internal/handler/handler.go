// Package handler is the transport boundary: it decodes calculation
// requests, performs the thin input checks the engine assumes, and bounds how
// many CPU-bound calculations run at once.
package handler

import (
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"golang.org/x/sync/semaphore"

	"pension-calculation-engine/internal/engine"
	"pension-calculation-engine/internal/metrics"
	"pension-calculation-engine/internal/model"
)

type Handler struct {
	engine  *engine.Engine
	sem     *semaphore.Weighted
	metrics fasthttp.RequestHandler
	log     *logrus.Entry
}

func New(eng *engine.Engine, maxConcurrent int64, log *logrus.Logger) *Handler {
	return &Handler{
		engine:  eng,
		sem:     semaphore.NewWeighted(maxConcurrent),
		metrics: fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()),
		log:     log.WithField("component", "handler"),
	}
}

func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) == "/metrics" {
		h.metrics(ctx)
		return
	}

	if !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req model.CalculationRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.TenantID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "tenant_id is required")
		return
	}
	if len(req.CalculationInstructions.Mutations) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "At least one mutation is required")
		return
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, "Server is overloaded")
		return
	}
	resp := h.engine.Process(ctx, &req)
	h.sem.Release(1)

	metrics.CalculationsTotal.WithLabelValues(resp.CalculationMetadata.CalculationOutcome).Inc()
	metrics.CalculationDuration.Observe(float64(resp.CalculationMetadata.CalculationDurationMs) / 1000)

	h.log.WithFields(logrus.Fields{
		"tenant_id":      req.TenantID,
		"calculation_id": resp.CalculationMetadata.CalculationID,
		"mutations":      len(req.CalculationInstructions.Mutations),
		"outcome":        resp.CalculationMetadata.CalculationOutcome,
		"duration_ms":    resp.CalculationMetadata.CalculationDurationMs,
	}).Info("calculation processed")

	body, err := json.Marshal(resp)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to encode response")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(model.ErrorResponse{Status: status, Message: message})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
