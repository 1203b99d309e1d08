package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shapeup/internal/attendance"
	"shapeup/internal/auth"
	"shapeup/internal/config"
	"shapeup/internal/logger"
	"shapeup/internal/membership"
	"shapeup/internal/notify"
	"shapeup/internal/plan"
	"shapeup/internal/renewal"

	"github.com/gin-gonic/gin"
)

// Handlers groups the per-package HTTP handlers mounted by the server.
type Handlers struct {
	Members       *membership.Handler
	Attendance    *attendance.Handler
	Renewals      *renewal.Handler
	Plans         *plan.Handler
	Notifications *notify.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	checkInLimit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router.GET("/plans", authMiddleware, h.Plans.ListPlans)

	me := router.Group("/me")
	me.Use(authMiddleware)
	{
		me.GET("", h.Members.Me)
		me.POST("/check-in", checkInLimit, h.Attendance.CheckIn)
		me.GET("/renewal", h.Renewals.MyStatus)
		me.POST("/renewals", h.Renewals.Create)
		me.GET("/notifications", h.Notifications.Mine)
		me.POST("/notifications/:id/read", h.Notifications.MarkRead)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/members", h.Members.Register)
		admin.GET("/members", h.Members.List)
		admin.GET("/members/:memberID", h.Members.Get)
		admin.POST("/members/:memberID/activate", h.Members.Activate)
		admin.POST("/members/:memberID/deactivate", h.Members.Deactivate)
		admin.POST("/members/:memberID/freeze", h.Members.Freeze)
		admin.POST("/members/:memberID/unfreeze", h.Members.Unfreeze)
		admin.POST("/members/:memberID/dormant", h.Members.MarkDormant)
		admin.GET("/members/:memberID/history", h.Members.History)
		admin.GET("/members/:memberID/attendance", h.Attendance.Entries)
		admin.POST("/members/:memberID/attendance", checkInLimit, h.Attendance.Record)
		admin.POST("/members/:memberID/attendance/reconcile", h.Attendance.Reconcile)
		admin.GET("/freezes/overdue", h.Members.OverdueFreezes)

		admin.GET("/renewals", h.Renewals.List)
		admin.POST("/renewals/:requestID/approve", h.Renewals.Approve)
		admin.POST("/renewals/:requestID/reject", h.Renewals.Reject)

		admin.GET("/notifications", h.Notifications.ForAdmins)
		admin.POST("/notifications/:id/read", h.Notifications.MarkAdminRead)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	logger.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
