package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"preflight/internal/http/middleware"
	"preflight/internal/service"
)

type submitActionRequest struct {
	DocumentID     string          `json:"document_id"`
	Role           string          `json:"role"`
	Action         string          `json:"action"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

type ingestDocumentRequest struct {
	DocumentID string                 `json:"document_id"`
	Title      string                 `json:"title,omitempty"`
	Source     string                 `json:"source,omitempty"`
	Findings   []service.FindingInput `json:"findings,omitempty"`
}

type updateFindingRequest struct {
	Status string `json:"status"`
}

type createRequestRequest struct {
	DocumentID       string          `json:"document_id"`
	Role             string          `json:"role"`
	Question         string          `json:"question"`
	PreflightContext json.RawMessage `json:"preflight_context,omitempty" swaggertype:"object"`
}

type exportRequest struct {
	RequestIDs     []string `json:"request_ids"`
	IncludeContext bool     `json:"include_context"`
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
}

// HealthCheck pings the database. A nil db means the in-memory store is in use.
//
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
//
// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// SubmitAction records a preflight action. The Idempotency-Key header is used
// when the body carries no key. First admission answers 201, a replay 200.
//
// @Summary Submit a preflight action
// @Tags preflight
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "idempotency key"
// @Param body body submitActionRequest true "action"
// @Success 201 {object} dataPayload{data=model.ActionResult}
// @Success 200 {object} dataPayload{data=model.ActionResult}
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /api/preflight/action [post]
func SubmitAction(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req submitActionRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = c.Get(middleware.IdempotencyKeyHeader)
		}

		res, err := svc.Submit(c.UserContext(), service.SubmitInput{
			DocumentID:     req.DocumentID,
			Role:           req.Role,
			Action:         req.Action,
			IdempotencyKey: req.IdempotencyKey,
			Payload:        req.Payload,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		status := fiber.StatusCreated
		if res.Duplicate {
			status = fiber.StatusOK
		}
		return writeData(c, status, res)
	}
}

// GetEvaluation returns the document's current gate evaluation.
//
// @Summary Evaluate a document
// @Tags preflight
// @Produce json
// @Param id path string true "document fingerprint"
// @Success 200 {object} dataPayload{data=model.Evaluation}
// @Failure 404 {object} errorPayload
// @Router /api/preflight/documents/{id} [get]
func GetEvaluation(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eval, err := svc.Evaluate(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusOK, eval)
	}
}

// GetHistory returns the document's ledger.
//
// @Summary Action history
// @Tags preflight
// @Produce json
// @Param id path string true "document fingerprint"
// @Success 200 {object} dataPayload{data=service.HistoryResult}
// @Failure 404 {object} errorPayload
// @Router /api/preflight/documents/{id}/events [get]
func GetHistory(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h, err := svc.History(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusOK, h)
	}
}

// IngestDocument registers a document and its upstream findings.
//
// @Summary Ingest a document
// @Tags preflight
// @Accept json
// @Produce json
// @Param body body ingestDocumentRequest true "document"
// @Success 200 {object} dataPayload{data=service.IngestResult}
// @Failure 400 {object} errorPayload
// @Router /api/preflight/documents [post]
func IngestDocument(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ingestDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		res, err := svc.Ingest(c.UserContext(), service.IngestInput{
			DocumentID: req.DocumentID,
			Title:      req.Title,
			Source:     req.Source,
			Findings:   req.Findings,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusOK, res)
	}
}

// UpdateFinding changes a finding's review status.
//
// @Summary Update finding status
// @Tags preflight
// @Accept json
// @Produce json
// @Param id path string true "finding id"
// @Param body body updateFindingRequest true "status"
// @Success 200 {object} dataPayload{data=model.Finding}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/preflight/findings/{id} [patch]
func UpdateFinding(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateFindingRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		f, err := svc.UpdateFindingStatus(c.UserContext(), c.Params("id"), req.Status)
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusOK, f)
	}
}

// CreateRequest raises a review request.
//
// @Summary Create a review request
// @Tags requests
// @Accept json
// @Produce json
// @Param body body createRequestRequest true "request"
// @Success 201 {object} dataPayload{data=model.ReviewRequest}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/preflight/requests [post]
func CreateRequest(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRequestRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		rr, err := svc.CreateRequest(c.UserContext(), service.RequestInput{
			DocumentID:       req.DocumentID,
			Role:             req.Role,
			Question:         req.Question,
			PreflightContext: req.PreflightContext,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusCreated, rr)
	}
}

// ExportRequests builds the export payload for the selected requests.
//
// @Summary Export review requests
// @Tags requests
// @Accept json
// @Produce json
// @Param body body exportRequest true "selection"
// @Success 200 {object} dataPayload{data=model.ExportPayload}
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /api/preflight/export [post]
func ExportRequests(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req exportRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		payload, err := svc.Export(c.UserContext(), service.ExportInput{
			RequestIDs:     req.RequestIDs,
			IncludeContext: req.IncludeContext,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusOK, payload)
	}
}

// DownloadExport streams an uploaded export payload.
//
// @Summary Download an export
// @Tags requests
// @Produce json
// @Param id path string true "export id"
// @Success 200 {object} model.ExportPayload
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/preflight/exports/{id} [get]
func DownloadExport(svc service.PreflightService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, err := svc.OpenExport(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Type("json")
		// fasthttp closes rc once the body is written.
		return c.Status(fiber.StatusOK).SendStream(rc)
	}
}
