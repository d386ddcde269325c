// Package api exposes the thin HTTP glue over the order-book cache: order
// intake and deletion, match triggering, and list queries. Handlers only
// validate and delegate; all bookkeeping lives in internal/core.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/core"
)

var validate = validator.New()

// Server is the HTTP surface of the marketplace order-book service.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
	book   *core.OrderBook
}

// NewServer wires the routes over an injected order book. The prometheus
// gatherer backs the /metrics endpoint.
func NewServer(logger *zap.Logger, book *core.OrderBook, gatherer prometheus.Gatherer) *Server {
	s := &Server{logger: logger, book: book}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(requestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.POST("/orders", s.createOrder)
		v1.GET("/orders", s.listOrders)
		v1.DELETE("/orders/:side/:list/:id", s.deleteOrder)
		v1.POST("/orders/:id/match", s.executeMatch)
		v1.GET("/matches", s.previewMatches)
	}

	s.router = router
	return s
}

// Handler returns the underlying http.Handler for serving and for tests.
func (s *Server) Handler() http.Handler { return s.router }

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
