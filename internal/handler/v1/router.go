package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imena-mn/nmflow/internal/config"
	"github.com/imena-mn/nmflow/internal/domain"
	"github.com/imena-mn/nmflow/internal/handler/middleware"
	"github.com/imena-mn/nmflow/internal/service"
	"github.com/imena-mn/nmflow/pkg/auth"
	"github.com/imena-mn/nmflow/pkg/metrics"
)

type RouterDeps struct {
	Config      *config.Config
	Log         *zap.Logger
	JWTManager  *auth.JWTManager
	Metrics     *metrics.Collector
	AuthSvc     *service.AuthService
	WorkflowSvc *service.WorkflowService
	StatsSvc    *service.StatsService
	HotLabSvc   *service.HotLabService
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": deps.Config.App.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authHandler := NewAuthHandler(deps.AuthSvc)
	patientHandler := NewPatientHandler(deps.WorkflowSvc, deps.StatsSvc)
	statsHandler := NewStatsHandler(deps.StatsSvc)
	hotLabHandler := NewHotLabHandler(deps.HotLabSvc)

	api := r.Group("/api/v1")

	// Public auth endpoints
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Everything else requires a valid access token
	authed := api.Group("")
	authed.Use(middleware.Auth(deps.JWTManager))

	authed.POST("/auth/register", middleware.RequireRoles(domain.RoleAdmin), authHandler.Register)
	authed.POST("/auth/password", authHandler.ChangePassword)

	authed.GET("/rooms", patientHandler.Rooms)

	authed.POST("/patients", patientHandler.Create)
	authed.GET("/patients", patientHandler.List)
	authed.GET("/patients/:id", patientHandler.Get)
	authed.GET("/patients/:id/delays", patientHandler.Delays)
	authed.POST("/patients/:id/rooms/:roomId/form", patientHandler.SubmitRoomForm)
	authed.POST("/patients/:id/move", patientHandler.Move)
	authed.POST("/patients/:id/documents", patientHandler.AttachDocument)

	authed.GET("/stats/delays", statsHandler.AverageDelays)
	authed.GET("/stats/exams", statsHandler.ExamTypeCounts)
	authed.GET("/activity", statsHandler.ActivityFeed)
	authed.GET("/worklist", statsHandler.DailyWorklist)

	hotlab := authed.Group("/hotlab")
	hotlab.Use(middleware.RequireRoles(domain.RoleTechnician, domain.RoleAdmin))
	hotlab.GET("/inventory", hotLabHandler.Inventory)
	hotlab.POST("/products", hotLabHandler.CreateProduct)
	hotlab.POST("/lots", hotLabHandler.ReceiveLot)
	hotlab.POST("/preparations", hotLabHandler.PrepareDose)

	return r
}
