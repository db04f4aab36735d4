package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

type RouteHandler struct {
	svc *service.ConfigService
}

func NewRouteHandler(svc *service.ConfigService) *RouteHandler {
	return &RouteHandler{svc: svc}
}

// List returns every route
// GET /api/v1/routes
func (h *RouteHandler) List(c echo.Context) error {
	routes := h.svc.ListRoutes()
	return listResponse(c, routes, len(routes))
}

// Get returns one route
// GET /api/v1/routes/:name
func (h *RouteHandler) Get(c echo.Context) error {
	route, err := h.svc.GetRoute(c.Param("name"))
	if err != nil {
		return respondError(c, "get route", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": route})
}

// Create adds a route
// POST /api/v1/routes
func (h *RouteHandler) Create(c echo.Context) error {
	var req model.CreateRouteRequest
	if err := c.Bind(&req); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	route, res, err := h.svc.CreateRoute(c.Request().Context(), currentActor(c), req)
	if err != nil {
		return mutationFailed(c, h.svc, "create route", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Route '%s' created", route.Name), route)
}

// Update changes the supplied fields of a route
// PUT /api/v1/routes/:name
func (h *RouteHandler) Update(c echo.Context) error {
	var req model.UpdateRouteRequest
	if err := c.Bind(&req); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	route, res, err := h.svc.UpdateRoute(c.Request().Context(), currentActor(c), c.Param("name"), req)
	if err != nil {
		return mutationFailed(c, h.svc, "update route", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Route '%s' updated", route.Name), route)
}

// Delete removes a route
// DELETE /api/v1/routes/:name
func (h *RouteHandler) Delete(c echo.Context) error {
	name := c.Param("name")
	res, err := h.svc.DeleteRoute(c.Request().Context(), currentActor(c), name)
	if err != nil {
		return mutationFailed(c, h.svc, "delete route", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Route '%s' deleted", name), nil)
}
