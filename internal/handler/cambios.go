package handler

import (
	"fmt"
	"net/http"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/apierror"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CambiosHandler struct {
	cambios     service.CambioService
	facturacion service.FacturacionService
}

func NewCambiosHandler(cambios service.CambioService, facturacion service.FacturacionService) *CambiosHandler {
	return &CambiosHandler{cambios: cambios, facturacion: facturacion}
}

// Listar godoc
// @Summary      Listar cambios registrados
// @Description  Registro local de cambios. estado=pendientes lista los que tienen la venta o la nota de crédito pendiente.
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        fecha    query string false "Fecha YYYY-MM-DD"
// @Param        estado   query string false "all | pendientes | completado | pendiente_venta | pendiente_nota_credito | nota_credito_no_recuperable"
// @Param        venta_id query string false "Venta original"
// @Param        page     query int    false "Página (default 1)"
// @Param        limit    query int    false "Registros por página (default 50)"
// @Success      200      {object} dto.CambioListResponse
// @Failure      422      {object} apierror.ValidationError
// @Router       /v1/cambios [get]
func (h *CambiosHandler) Listar(c *gin.Context) {
	var filter dto.CambioFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.cambios.Listar(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al listar cambios"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Detalle de un cambio
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID del cambio"
// @Success      200 {object} dto.CambioResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cambios/{id} [get]
func (h *CambiosHandler) Obtener(c *gin.Context) {
	id, ok := parseUUID(c)
	if !ok {
		return
	}
	resp, err := h.cambios.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReintentarNotaCredito godoc
// @Summary      Reintentar recuperación de nota de crédito
// @Description  Vuelve a buscar la venta de nota de crédito de un cambio en estado pendiente_nota_credito. Nunca vuelve a crear el cambio.
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID del cambio"
// @Success      200 {object} dto.NotaCreditoResponse
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Failure      502 {object} apierror.UpstreamError
// @Router       /v1/cambios/{id}/nota-credito [post]
func (h *CambiosHandler) ReintentarNotaCredito(c *gin.Context) {
	id, ok := parseUUID(c)
	if !ok {
		return
	}
	resp, err := h.cambios.ReintentarNotaCredito(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ticket godoc
// @Summary      Descargar ticket del cambio
// @Tags         cambios
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id  path string true "UUID del cambio"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cambios/{id}/ticket [get]
func (h *CambiosHandler) Ticket(c *gin.Context) {
	id, ok := parseUUID(c)
	if !ok {
		return
	}
	path, err := h.facturacion.TicketPDF(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.FileAttachment(path, fmt.Sprintf("cambio_%s.pdf", id.String()[:8]))
}

func parseUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}
