package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// buildRouter wires routes for the API. The browser storefront and call
// launcher talk to these endpoints cross-origin, so CORS is permissive;
// preflights are answered with 200 and an empty body.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.HandleMethodNotAllowed = true

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization",
		"X-Requested-With", "X-Health-Check", "X-Client-Info", "Apikey",
	}
	corsCfg.OptionsResponseStatusCode = http.StatusOK
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")
	{
		api.POST("/trigger-call", triggerCallHandler(deps.Calls))
		api.GET("/call-markup", callMarkupHandler(deps.Calls))
		api.POST("/call-markup", callMarkupHandler(deps.Calls))
		api.GET("/status-callback", statusReachableHandler)
		api.POST("/status-callback", statusCallbackHandler(logger))

		api.POST("/create-payment", createPaymentHandler(deps.Checkout))
		api.POST("/verify-payment", verifyPaymentHandler(deps.Checkout))

		api.GET("/products", listProductsHandler(deps.Products))
	}

	return router
}
