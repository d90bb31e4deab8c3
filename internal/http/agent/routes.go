package agent

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the agent endpoints under the given Echo group.
// apiKeyAuth guards every route; it passes everything through when no key is configured.
func RegisterRoutes(g *echo.Group, h *Handler, apiKeyAuth echo.MiddlewareFunc) {
	g.Use(apiKeyAuth)

	// Activate against the remote service, verify, store
	g.POST("/activate", h.Activate)

	// Stored licenses, re-verified on every read
	g.GET("/license", h.ListLicenses)
	g.GET("/license/:product_id/:key", h.GetLicense)

	// Forget a stored license
	g.DELETE("/license/:product_id/:key", h.DeleteLicense)
}
