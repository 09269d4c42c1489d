package handler

import (
	"github.com/gofiber/fiber/v2"

	"preflight/internal/service"
)

type createBatchRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type addBatchDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

// CreateBatch creates a batch; an empty id is generated.
//
// @Summary Create a batch
// @Tags batches
// @Accept json
// @Produce json
// @Param body body createBatchRequest true "batch"
// @Success 201 {object} dataPayload{data=model.Batch}
// @Failure 409 {object} errorPayload
// @Router /api/preflight/batches [post]
func CreateBatch(svc service.BatchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createBatchRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		b, err := svc.Create(c.UserContext(), req.ID, req.Name)
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusCreated, b)
	}
}

// AddBatchDocuments adds existing documents to a batch.
//
// @Summary Add batch members
// @Tags batches
// @Accept json
// @Param id path string true "batch id"
// @Param body body addBatchDocumentsRequest true "members"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/preflight/batches/{id}/documents [post]
func AddBatchDocuments(svc service.BatchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addBatchDocumentsRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		if err := svc.AddDocuments(c.UserContext(), c.Params("id"), req.DocumentIDs); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetBatchHealth summarizes member gate colors.
//
// @Summary Batch health
// @Tags batches
// @Produce json
// @Param id path string true "batch id"
// @Success 200 {object} dataPayload{data=model.BatchHealth}
// @Failure 404 {object} errorPayload
// @Router /api/preflight/batches/{id}/health [get]
func GetBatchHealth(svc service.BatchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h, err := svc.Health(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeData(c, fiber.StatusOK, h)
	}
}
