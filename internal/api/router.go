package api

import (
	"github.com/gin-gonic/gin"

	"github.com/idiarso/linux-park-sub001/internal/api/handler"
	"github.com/idiarso/linux-park-sub001/internal/api/middleware"
	"github.com/idiarso/linux-park-sub001/internal/hardware"
	"github.com/idiarso/linux-park-sub001/internal/service"
)

func SetupRouter(
	authService *service.AuthService,
	sessionService *service.SessionService,
	spaceService *service.ParkingSpaceService,
	scheduleService *service.RateScheduleService,
	lprService *service.LPRService,
	coordinator *hardware.Coordinator,
	authMw *middleware.AuthMiddleware,
	wsManager *handler.WebSocketManager,
) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(authService)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		sessionH := handler.NewSessionHandler(sessionService)
		sessionRoutes := v1.Group("/sessions")
		{
			sessionRoutes.POST("/entry", sessionH.RequestEntry)
			sessionRoutes.POST("/exit", sessionH.RequestExit)
			sessionRoutes.POST("/:id/payment", sessionH.ConfirmPayment)
			sessionRoutes.POST("/:id/cancel", authMw.AuthorizeRole("admin", "operator"), sessionH.Cancel)
			sessionRoutes.POST("/:id/force-complete", authMw.AuthorizeRole("admin", "operator"), sessionH.ForceComplete)
			sessionRoutes.GET("", sessionH.List)
			sessionRoutes.GET("/:id", sessionH.GetByID)
		}

		spaceH := handler.NewSpaceHandler(spaceService)
		spaceRoutes := v1.Group("/spaces")
		{
			spaceRoutes.POST("", authMw.AuthorizeRole("admin"), spaceH.Create)
			spaceRoutes.GET("", spaceH.List)
			spaceRoutes.GET("/:id", spaceH.GetByID)
			spaceRoutes.PUT("/:id/active", authMw.AuthorizeRole("admin"), spaceH.SetActive)
		}

		scheduleH := handler.NewScheduleHandler(scheduleService)
		scheduleRoutes := v1.Group("/rate-schedules")
		{
			scheduleRoutes.POST("", authMw.AuthorizeRole("admin"), scheduleH.Create)
			scheduleRoutes.GET("", scheduleH.List)
			scheduleRoutes.GET("/active", scheduleH.Active)
			scheduleRoutes.GET("/:id", scheduleH.GetByID)
		}

		hardwareH := handler.NewHardwareHandler(coordinator)
		hardwareRoutes := v1.Group("/hardware")
		{
			hardwareRoutes.GET("/facilities", hardwareH.Facilities)
			hardwareRoutes.POST("/facilities/:id/initialize", authMw.AuthorizeRole("admin", "operator"), hardwareH.Initialize)
			hardwareRoutes.POST("/actuate", authMw.AuthorizeRole("admin", "operator"), hardwareH.ManualActuate)
		}

		lprH := handler.NewLPRHandler(lprService)
		v1.POST("/lpr/process-image", lprH.ProcessImage)
	}

	return r
}
