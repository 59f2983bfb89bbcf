package restapi

import (
	"net/http"
	"net/http/pprof"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterOptions controls the optional routes of the API server.
type RouterOptions struct {
	CORSAllowOrigins []string
	EnableSwagger    bool
	SwaggerFile      string // served at /docs/swagger.yaml
	EnablePprof      bool
}

// SetupRouter builds the gin engine with the /api/v1 routes, /metrics and the optional swagger
// and pprof routes.
func SetupRouter(h *PortfolioHandler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSAllowOrigins) == 0 || opts.CORSAllowOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSAllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolio", h.GetPortfolioHandler)
		v1.POST("/reload", h.ReloadHandler)

		v1.GET("/accounts", h.ListAccountsHandler)
		v1.POST("/accounts", h.AddAccountHandler)
		v1.DELETE("/accounts/:address", h.RemoveAccountHandler)

		v1.GET("/networks", h.ListNetworksHandler)
		v1.POST("/networks/:chainId/toggle", h.ToggleNetworkHandler)

		v1.PUT("/settings/hide-dust", h.SetHideDustHandler)

		v1.GET("/snapshots", h.ListSnapshotsHandler)
		v1.POST("/snapshots", h.SaveSnapshotHandler)
		v1.GET("/snapshots/:index", h.GetSnapshotHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.EnableSwagger && opts.SwaggerFile != "" {
		router.StaticFile("/docs/swagger.yaml", opts.SwaggerFile)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
		logger.Info("Swagger UI enabled", zap.String("path", "/swagger/index.html"))
	}

	if opts.EnablePprof {
		pprofRouter := router.Group("/debug/pprof")
		{
			pprofRouter.GET("/", gin.WrapF(pprof.Index))
			pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
			pprofRouter.POST("/symbol", gin.WrapF(pprof.Symbol))
			pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
			pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
			pprofRouter.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
			pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
			pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		}
		logger.Info("Pprof endpoints enabled under /debug/pprof")
	}

	return router
}
