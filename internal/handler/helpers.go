package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/apierror"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/middleware"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// report fields by their JSON / query name, the one the UI sends
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindOptional is bindAndValidate for endpoints whose body may be empty.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return validar(c, req)
	}
	return bindAndValidate(c, req)
}

// bindQuery binds and validates query string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// operador builds the acting operator from the JWT claims.
func operador(c *gin.Context) service.Operador {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Operador{}
	}
	return service.Operador{
		UsuarioID: claims.Usuario(),
		TiendaID:  claims.TiendaID,
		Rol:       claims.Rol,
	}
}

// responderError maps service, engine and retail errors to HTTP responses.
//
//	validation (local or remote)        → 422
//	unknown session / sale / product    → 404
//	submit in flight, invalid step      → 409
//	retail circuit open                 → 503
//	retail failure                      → 502
//	anything else                       → 500, logged, detail hidden
func responderError(c *gin.Context, err error) {
	if cambio.EsValidacion(err) {
		var ev *cambio.ErrorValidacion
		if errors.As(err, &ev) {
			c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationMsg(ev.Mensaje, map[string]string{ev.Campo: ev.Mensaje}))
			return
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationMsg(err.Error(), nil))
		return
	}

	var seg *service.ErrorSeguimiento
	if errors.As(err, &seg) {
		status, body := upstream(seg.Err)
		body.Detail = seg.Error()
		body.CambioID = seg.CambioID
		c.JSON(status, body)
		return
	}

	switch {
	case errors.Is(err, repository.ErrSesionNoEncontrada),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, infra.ErrVentaNoEncontrada),
		errors.Is(err, infra.ErrProductoNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	case errors.Is(err, repository.ErrEnvioEnCurso),
		errors.Is(err, cambio.ErrTransicionInvalida),
		errors.Is(err, cambio.ErrSeguimientoPendiente),
		errors.Is(err, service.ErrSinSeguimiento),
		errors.Is(err, service.ErrCambioSinRegistro):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
		return
	}

	var re *infra.RetailError
	if errors.As(err, &re) || errors.Is(err, infra.ErrCircuitOpen) || errors.Is(err, infra.ErrRetailInalcanzable) ||
		errors.Is(err, context.DeadlineExceeded) {
		status, body := upstream(err)
		c.JSON(status, body)
		return
	}

	log.Error().Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg("handler: error no clasificado")
	c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
}

func upstream(err error) (int, *apierror.UpstreamError) {
	body := &apierror.UpstreamError{Detail: err.Error()}
	var re *infra.RetailError
	switch {
	case errors.As(err, &re):
		body.Operacion = re.Operacion
		body.Fields = re.Campos
		if re.Validacion() {
			return http.StatusUnprocessableEntity, body
		}
		return http.StatusBadGateway, body
	case errors.Is(err, infra.ErrCircuitOpen):
		return http.StatusServiceUnavailable, body
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, body
	case cambio.EsValidacion(err):
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusBadGateway, body
	}
}
