package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

type MiddlewareHandler struct {
	svc *service.ConfigService
}

func NewMiddlewareHandler(svc *service.ConfigService) *MiddlewareHandler {
	return &MiddlewareHandler{svc: svc}
}

// List returns every middleware
// GET /api/v1/middleware
func (h *MiddlewareHandler) List(c echo.Context) error {
	items := h.svc.ListMiddlewares()
	return listResponse(c, items, len(items))
}

// Types lists the middleware types that can be authored with their config keys
// GET /api/v1/middleware/types
func (h *MiddlewareHandler) Types(c echo.Context) error {
	types := model.MiddlewareTypes()
	out := make([]map[string]interface{}, 0, len(types))
	for _, t := range types {
		out = append(out, map[string]interface{}{
			"type": t,
			"keys": model.ConfigKeys(t),
		})
	}
	return listResponse(c, out, len(out))
}

// GET /api/v1/middleware/:name
func (h *MiddlewareHandler) Get(c echo.Context) error {
	m, err := h.svc.GetMiddleware(c.Param("name"))
	if err != nil {
		return respondError(c, "get middleware", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": m})
}

// POST /api/v1/middleware
func (h *MiddlewareHandler) Create(c echo.Context) error {
	var req model.CreateMiddlewareRequest
	if err := c.Bind(&req); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	m, res, err := h.svc.CreateMiddleware(c.Request().Context(), currentActor(c), req)
	if err != nil {
		return mutationFailed(c, h.svc, "create middleware", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Middleware '%s' created", m.Name), m)
}

// PUT /api/v1/middleware/:name
func (h *MiddlewareHandler) Update(c echo.Context) error {
	var req model.UpdateMiddlewareRequest
	if err := c.Bind(&req); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	m, res, err := h.svc.UpdateMiddleware(c.Request().Context(), currentActor(c), c.Param("name"), req)
	if err != nil {
		return mutationFailed(c, h.svc, "update middleware", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Middleware '%s' updated", m.Name), m)
}

// DELETE /api/v1/middleware/:name
func (h *MiddlewareHandler) Delete(c echo.Context) error {
	name := c.Param("name")
	res, err := h.svc.DeleteMiddleware(c.Request().Context(), currentActor(c), name)
	if err != nil {
		return mutationFailed(c, h.svc, "delete middleware", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Middleware '%s' deleted", name), nil)
}
