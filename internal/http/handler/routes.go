package handler

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"preflight/docs"
	"preflight/internal/service"
)

// OpenAPIFile is served at /openapi.yaml relative to the working directory.
const OpenAPIFile = "openapi.yaml"

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Preflight API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`

// RegisterRoutes attaches the API to app. db may be nil when the ledger is
// kept in memory.
func RegisterRoutes(app *fiber.App, db *sql.DB, preflightSvc service.PreflightService, batchSvc service.BatchService) {
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile(OpenAPIFile)
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.Type("html").SendString(docsPage)
	})
	app.Get("/swagger/*", swaggerUI)

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api/preflight")
	api.Post("/action", SubmitAction(preflightSvc))
	api.Post("/documents", IngestDocument(preflightSvc))
	api.Get("/documents/:id", GetEvaluation(preflightSvc))
	api.Get("/documents/:id/events", GetHistory(preflightSvc))
	api.Patch("/findings/:id", UpdateFinding(preflightSvc))

	api.Post("/batches", CreateBatch(batchSvc))
	api.Post("/batches/:id/documents", AddBatchDocuments(batchSvc))
	api.Get("/batches/:id/health", GetBatchHealth(batchSvc))

	api.Post("/requests", CreateRequest(preflightSvc))
	api.Post("/export", ExportRequests(preflightSvc))
	api.Get("/exports/:id", DownloadExport(preflightSvc))
}

// swaggerUI serves the generated docs with the host and scheme the caller used.
func swaggerUI(c *fiber.Ctx) error {
	scheme := c.Protocol()
	if proto := c.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}

	docs.SwaggerInfo.Host = c.Get("Host")
	docs.SwaggerInfo.Schemes = []string{scheme}

	return swagger.HandlerDefault(c)
}
