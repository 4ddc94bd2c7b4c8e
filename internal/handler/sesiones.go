package handler

import (
	"net/http"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type SesionesHandler struct {
	sesiones service.SesionService
	cambios  service.CambioService
}

func NewSesionesHandler(sesiones service.SesionService, cambios service.CambioService) *SesionesHandler {
	return &SesionesHandler{sesiones: sesiones, cambios: cambios}
}

// Crear godoc
// @Summary      Iniciar sesión de cambio
// @Description  Crea una sesión de cambio/devolución para el operador. Con venta_id busca la venta original y la selecciona.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CrearSesionRequest false "Venta original (opcional)"
// @Success      201  {object} dto.SesionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      502  {object} apierror.UpstreamError
// @Router       /v1/cambios/sesiones [post]
func (h *SesionesHandler) Crear(c *gin.Context) {
	var req dto.CrearSesionRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.sesiones.Crear(c.Request.Context(), operador(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Obtener sesión de cambio
// @Description  Devuelve la sesión con la liquidación recalculada: monto devuelto, total del carrito, diferencia y líneas.
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "ID de la sesión"
// @Success      200 {object} dto.SesionResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cambios/sesiones/{id} [get]
func (h *SesionesHandler) Obtener(c *gin.Context) {
	resp, err := h.sesiones.Obtener(c.Request.Context(), operador(c), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Descartar godoc
// @Summary      Descartar sesión de cambio
// @Tags         cambios
// @Security     BearerAuth
// @Param        id  path string true "ID de la sesión"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cambios/sesiones/{id} [delete]
func (h *SesionesHandler) Descartar(c *gin.Context) {
	if err := h.sesiones.Descartar(c.Request.Context(), operador(c), c.Param("id")); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SeleccionarVenta godoc
// @Summary      Seleccionar venta original
// @Description  Busca la venta en el servicio de ventas. Cambiar de venta limpia la selección de devoluciones.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                      true "ID de la sesión"
// @Param        body body     dto.SeleccionarVentaRequest true "Venta"
// @Success      200  {object} dto.SesionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/cambios/sesiones/{id}/venta [put]
func (h *SesionesHandler) SeleccionarVenta(c *gin.Context) {
	var req dto.SeleccionarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sesiones.SeleccionarVenta(c.Request.Context(), operador(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarcarDevolucion godoc
// @Summary      Marcar cantidad a devolver
// @Description  Fija la cantidad a devolver de una línea de la venta original. Cantidad 0 la desmarca.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path     string                      true "ID de la sesión"
// @Param        linea_id path     string                      true "ID de la línea de venta"
// @Param        body     body     dto.MarcarDevolucionRequest true "Cantidad"
// @Success      200      {object} dto.SesionResponse
// @Failure      422      {object} apierror.ValidationError
// @Router       /v1/cambios/sesiones/{id}/devoluciones/{linea_id} [put]
func (h *SesionesHandler) MarcarDevolucion(c *gin.Context) {
	var req dto.MarcarDevolucionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sesiones.MarcarDevolucion(c.Request.Context(), operador(c), c.Param("id"), c.Param("linea_id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarProducto godoc
// @Summary      Agregar producto al carrito
// @Description  Agrega un producto nuevo verificando stock (acumulado con lo ya agregado).
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                     true "ID de la sesión"
// @Param        body body     dto.AgregarProductoRequest true "Producto y cantidad"
// @Success      200  {object} dto.SesionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/cambios/sesiones/{id}/carrito [post]
func (h *SesionesHandler) AgregarProducto(c *gin.Context) {
	var req dto.AgregarProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sesiones.AgregarProducto(c.Request.Context(), operador(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarCantidad godoc
// @Summary      Cambiar cantidad en el carrito
// @Description  Cantidad 0 quita la línea.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id          path     string                     true "ID de la sesión"
// @Param        producto_id path     string                     true "ID del producto"
// @Param        body        body     dto.CambiarCantidadRequest true "Cantidad"
// @Success      200         {object} dto.SesionResponse
// @Failure      422         {object} apierror.ValidationError
// @Router       /v1/cambios/sesiones/{id}/carrito/{producto_id} [patch]
func (h *SesionesHandler) CambiarCantidad(c *gin.Context) {
	var req dto.CambiarCantidadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sesiones.CambiarCantidad(c.Request.Context(), operador(c), c.Param("id"), c.Param("producto_id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QuitarProducto godoc
// @Summary      Quitar producto del carrito
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        id          path     string true "ID de la sesión"
// @Param        producto_id path     string true "ID del producto"
// @Success      200         {object} dto.SesionResponse
// @Failure      422         {object} apierror.ValidationError
// @Router       /v1/cambios/sesiones/{id}/carrito/{producto_id} [delete]
func (h *SesionesHandler) QuitarProducto(c *gin.Context) {
	resp, err := h.sesiones.QuitarProducto(c.Request.Context(), operador(c), c.Param("id"), c.Param("producto_id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AplicarAjuste godoc
// @Summary      Aplicar descuento o recargo al carrito
// @Description  Un único ajuste por carrito. redondeo=true redondea el total hacia abajo a múltiplo de 100.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string            true "ID de la sesión"
// @Param        body body     dto.AjusteRequest true "Ajuste"
// @Success      200  {object} dto.SesionResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/cambios/sesiones/{id}/ajuste [put]
func (h *SesionesHandler) AplicarAjuste(c *gin.Context) {
	var req dto.AjusteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sesiones.AplicarAjuste(c.Request.Context(), operador(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ElegirPago godoc
// @Summary      Elegir método de pago
// @Description  Método de pago para cobrar la diferencia. Los métodos financieros requieren arancel_id.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string          true "ID de la sesión"
// @Param        body body     dto.PagoRequest true "Método de pago"
// @Success      200  {object} dto.SesionResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/cambios/sesiones/{id}/pago [put]
func (h *SesionesHandler) ElegirPago(c *gin.Context) {
	var req dto.PagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sesiones.ElegirPago(c.Request.Context(), operador(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirmar godoc
// @Summary      Confirmar cambio
// @Description  Registra el cambio en el servicio de ventas. Diferencia positiva: crea la venta por la diferencia. Diferencia negativa: recupera la nota de crédito.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string               true  "ID de la sesión"
// @Param        body body     dto.ConfirmarRequest false "Motivo y email del cliente"
// @Success      200  {object} dto.ConfirmarResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Failure      502  {object} apierror.UpstreamError
// @Router       /v1/cambios/sesiones/{id}/confirmar [post]
func (h *SesionesHandler) Confirmar(c *gin.Context) {
	var req dto.ConfirmarRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.cambios.Confirmar(c.Request.Context(), operador(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
