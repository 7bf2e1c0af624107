package http

import (
	"net/http"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/nearmatch-backend/internal/delivery/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler      *handler.AuthHandler
	profileHandler   *handler.ProfileHandler
	discoveryHandler *handler.DiscoveryHandler
	swipeHandler     *handler.SwipeHandler
	matchHandler     *handler.MatchHandler
	messageHandler   *handler.MessageHandler
	authMiddleware   *middleware.AuthMiddleware
	allowedOrigins   []string
}

func NewRouter(
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	discoveryHandler *handler.DiscoveryHandler,
	swipeHandler *handler.SwipeHandler,
	matchHandler *handler.MatchHandler,
	messageHandler *handler.MessageHandler,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
) *Router {
	return &Router{
		authHandler:      authHandler,
		profileHandler:   profileHandler,
		discoveryHandler: discoveryHandler,
		swipeHandler:     swipeHandler,
		matchHandler:     matchHandler,
		messageHandler:   messageHandler,
		authMiddleware:   authMiddleware,
		allowedOrigins:   allowedOrigins,
	}
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(r.allowedOrigins) == 0 || (len(r.allowedOrigins) == 1 && r.allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = r.allowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (r *Router) Setup() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(r.corsConfig()))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.GET("/me", r.authMiddleware.RequireAuth(), r.authHandler.Me)
		}

		// Protected routes
		protected := v1.Group("")
		protected.Use(r.authMiddleware.RequireAuth())
		{
			profile := protected.Group("/profile")
			{
				profile.GET("/me", r.profileHandler.GetMyProfile)
				profile.PUT("/me", r.profileHandler.UpdateMyProfile)
				profile.PUT("/me/location", r.profileHandler.UpdateLocation)
				profile.POST("/me/photos", r.profileHandler.AddPhoto)
				profile.DELETE("/me/photos/:index", r.profileHandler.RemovePhoto)
				profile.GET("/:id", r.profileHandler.GetProfile)
			}

			blocks := protected.Group("/blocks")
			{
				blocks.GET("", r.profileHandler.ListBlocked)
				blocks.POST("/:id", r.profileHandler.Block)
				blocks.DELETE("/:id", r.profileHandler.Unblock)
			}

			protected.GET("/discover", r.discoveryHandler.Discover)

			swipe := protected.Group("/swipe")
			{
				swipe.POST("/like", r.swipeHandler.Like)
				swipe.POST("/superlike", r.swipeHandler.SuperLike)
				swipe.POST("/dislike", r.swipeHandler.Dislike)
			}

			matches := protected.Group("/matches")
			{
				matches.GET("", r.matchHandler.ListMatches)
				matches.GET("/:id", r.matchHandler.GetMatch)
				matches.DELETE("/:id", r.matchHandler.Unmatch)
				matches.GET("/:id/messages", r.messageHandler.ListMessages)
				matches.POST("/:id/messages", r.messageHandler.SendMessage)
				matches.PUT("/:id/messages/read", r.messageHandler.MarkRead)
				matches.DELETE("/:id/messages/:messageId", r.messageHandler.DeleteMessage)
			}

			protected.GET("/messages/unread", r.messageHandler.UnreadSummary)
		}
	}

	return router
}
