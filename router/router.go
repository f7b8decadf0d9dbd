package router

import (
	"log"

	"ariadne/config"
	"ariadne/controllers"
	"ariadne/middleware"

	"github.com/gin-gonic/gin"
)

// Initialize wires all routes and middlewares. Public reset surface + the
// minimal account surface behind auth.
func Initialize(r *gin.Engine, cfg config.Configuration, limiter *middleware.RateLimiter) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	// Reset form (the link delivered to users lands here)
	r.GET(cfg.ResetPath, Logger(), controllers.ResetForm)
	r.POST(cfg.ResetPath, Logger(), controllers.ResetFormSubmit)

	api := r.Group("/api")

	// Public (no auth)
	api.POST("/users", Logger(), controllers.CreateUser)
	api.POST("/login", Logger(), controllers.Login)
	api.POST("/password/forgot", Logger(), middleware.ForgotRateLimit(limiter), controllers.ForgotPassword)
	api.POST("/password/reset", Logger(), controllers.ResetPassword)

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired())
	auth.GET("/me", Logger(), controllers.Me)

	log.Printf("Routes initialized")
}
