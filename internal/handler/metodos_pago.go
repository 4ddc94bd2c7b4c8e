package handler

import (
	"net/http"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type MetodosPagoHandler struct{ svc service.MetodoPagoService }

func NewMetodosPagoHandler(svc service.MetodoPagoService) *MetodosPagoHandler {
	return &MetodosPagoHandler{svc: svc}
}

// Listar godoc
// @Summary      Listar métodos de pago
// @Description  Métodos de pago con sus planes de cuotas (aranceles).
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array}  dto.MetodoPagoResponse
// @Failure      502 {object} apierror.UpstreamError
// @Router       /v1/metodos-pago [get]
func (h *MetodosPagoHandler) Listar(c *gin.Context) {
	metodos, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	out := make([]dto.MetodoPagoResponse, 0, len(metodos))
	for _, m := range metodos {
		r := dto.MetodoPagoResponse{
			ID:         m.ID,
			Nombre:     m.Nombre,
			Financiero: m.Financiero,
			Aranceles:  make([]dto.ArancelResponse, 0, len(m.Aranceles)),
		}
		for _, a := range m.Aranceles {
			r.Aranceles = append(r.Aranceles, dto.ArancelResponse{
				ID:         a.ID,
				Nombre:     a.Nombre,
				Cuotas:     a.Cuotas,
				Porcentaje: a.Porcentaje,
			})
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}
