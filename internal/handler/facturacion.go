package handler

import (
	"net/http"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type FacturacionHandler struct{ svc service.FacturacionService }

func NewFacturacionHandler(svc service.FacturacionService) *FacturacionHandler {
	return &FacturacionHandler{svc: svc}
}

// EmitirFactura godoc
// @Summary      Facturar venta por diferencia
// @Description  Emite la factura de la venta generada al cobrar la diferencia de un cambio. Sólo el nombre es obligatorio.
// @Tags         facturacion
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        venta_id path     string              true "ID de la venta"
// @Param        body     body     dto.FacturarRequest true "Datos del cliente"
// @Success      201      {object} dto.FacturaResponse
// @Failure      422      {object} apierror.ValidationError
// @Failure      502      {object} apierror.UpstreamError
// @Router       /v1/facturacion/ventas/{venta_id} [post]
func (h *FacturacionHandler) EmitirFactura(c *gin.Context) {
	var req dto.FacturarRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EmitirFactura(c.Request.Context(), c.Param("venta_id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
