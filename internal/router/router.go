package router

import (
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/config"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/handler"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/middleware"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the service layer shared by the HTTP routes and the
// background goroutines started in main.
type Services struct {
	Sesiones    service.SesionService
	Cambios     service.CambioService
	MetodosPago service.MetodoPagoService
	Facturacion service.FacturacionService

	CambioRepo repository.CambioRepository
	Dispatcher *worker.Dispatcher
}

// NewServices wires Service ← Repository ← DB/Redis/retail API.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, retail service.RetailAPI) *Services {
	cambioRepo := repository.NewCambioRepository(db)
	sesionRepo := repository.NewSesionRepository(rdb, cfg.SessionTTL(), cfg.SubmitLockTTL())

	// Worker dispatcher, injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	metodosSvc := service.NewMetodoPagoService(retail, rdb, cfg.MetodosPagoTTL())
	return &Services{
		Sesiones:    service.NewSesionService(sesionRepo, retail, metodosSvc),
		Cambios:     service.NewCambioService(sesionRepo, cambioRepo, retail, dispatcher),
		MetodosPago: metodosSvc,
		Facturacion: service.NewFacturacionService(retail, cambioRepo, cfg.PDFStoragePath, cfg.NombreTienda),
		CambioRepo:  cambioRepo,
		Dispatcher:  dispatcher,
	}
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, retailCB *infra.CircuitBreaker, svcs *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	sesionesH := handler.NewSesionesHandler(svcs.Sesiones, svcs.Cambios)
	cambiosH := handler.NewCambiosHandler(svcs.Cambios, svcs.Facturacion)
	metodosH := handler.NewMetodosPagoHandler(svcs.MetodosPago)
	facturacionH := handler.NewFacturacionHandler(svcs.Facturacion)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, retailCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes; limited per operator once the token is known
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW, middleware.RateLimiter(cfg.RateLimit, time.Minute))
	todos := middleware.RequireRole(middleware.RolCajero, middleware.RolSupervisor, middleware.RolAdministrador)
	{
		ses := v1.Group("/cambios/sesiones", todos)
		{
			ses.POST("", sesionesH.Crear)
			ses.GET("/:id", sesionesH.Obtener)
			ses.DELETE("/:id", sesionesH.Descartar)
			ses.PUT("/:id/venta", sesionesH.SeleccionarVenta)
			ses.PUT("/:id/devoluciones/:linea_id", sesionesH.MarcarDevolucion)
			ses.POST("/:id/carrito", sesionesH.AgregarProducto)
			ses.PATCH("/:id/carrito/:producto_id", sesionesH.CambiarCantidad)
			ses.DELETE("/:id/carrito/:producto_id", sesionesH.QuitarProducto)
			ses.PUT("/:id/ajuste", sesionesH.AplicarAjuste)
			ses.PUT("/:id/pago", sesionesH.ElegirPago)
			ses.POST("/:id/confirmar", sesionesH.Confirmar)
		}

		// Ledger: listing is for supervisors; any operator can open a
		// row, retry its credit note and print its ticket
		v1.GET("/cambios", middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador), cambiosH.Listar)
		v1.GET("/cambios/:id", todos, cambiosH.Obtener)
		v1.POST("/cambios/:id/nota-credito", todos, cambiosH.ReintentarNotaCredito)
		v1.GET("/cambios/:id/ticket", todos, cambiosH.Ticket)

		v1.GET("/metodos-pago", todos, metodosH.Listar)
		v1.POST("/facturacion/ventas/:venta_id", todos, facturacionH.EmitirFactura)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
