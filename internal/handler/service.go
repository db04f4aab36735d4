package handler

import (
	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/service"
)

// ServiceHandler exposes backend services read-only
type ServiceHandler struct {
	svc *service.ConfigService
}

func NewServiceHandler(svc *service.ConfigService) *ServiceHandler {
	return &ServiceHandler{svc: svc}
}

// GET /api/v1/services
func (h *ServiceHandler) List(c echo.Context) error {
	services := h.svc.ListServices()
	return listResponse(c, services, len(services))
}
