package controllers

import (
	"ariadne/config"
	"ariadne/reset"

	"github.com/gin-gonic/gin"
)

var (
	conf           config.Configuration
	resetIssuer    *reset.Issuer
	resetValidator *reset.Validator
)

// Setup injects the configuration and the reset services. Called once from
// main before routes are registered.
func Setup(cfg config.Configuration, issuer *reset.Issuer, validator *reset.Validator) {
	conf = cfg
	resetIssuer = issuer
	resetValidator = validator
}

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}
