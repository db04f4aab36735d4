package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

type CertificateHandler struct {
	svc *service.ConfigService
}

func NewCertificateHandler(svc *service.ConfigService) *CertificateHandler {
	return &CertificateHandler{svc: svc}
}

// List returns certificates with per-status counts
// GET /api/v1/certificates
func (h *CertificateHandler) List(c echo.Context) error {
	list, err := h.svc.ListCertificates()
	if err != nil {
		return respondError(c, "list certificates", err)
	}
	if status := c.QueryParam("status"); status != "" {
		filtered := make([]model.Certificate, 0, len(list.Data))
		for _, cert := range list.Data {
			if cert.Status == status {
				filtered = append(filtered, cert)
			}
		}
		list.Data = filtered
		list.Total = len(filtered)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list.Data,
		"total":   list.Total,
		"counts":  list.Counts,
	})
}

// Request records a certificate request for the engine's resolver to fulfil
// POST /api/v1/certificates
func (h *CertificateHandler) Request(c echo.Context) error {
	var req model.CreateCertificateRequest
	if err := c.Bind(&req); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	cert, res, err := h.svc.RequestCertificate(c.Request().Context(), currentActor(c), req)
	if err != nil {
		return mutationFailed(c, h.svc, "request certificate", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Certificate for '%s' requested", cert.Domain), cert)
}

// Revoke drops a certificate from the store and the request ledger
// DELETE /api/v1/certificates/:domain
func (h *CertificateHandler) Revoke(c echo.Context) error {
	domain := strings.ToLower(c.Param("domain"))
	res, err := h.svc.RevokeCertificate(c.Request().Context(), currentActor(c), domain)
	if err != nil {
		return mutationFailed(c, h.svc, "revoke certificate", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Certificate for '%s' revoked", domain), nil)
}
