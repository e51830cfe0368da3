package utils

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// Helper function to generate a URL for a given path
func UrlFor(c *gin.Context, path string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, path)
}

// GetBaseURL automatically detects the base URL from the request
func GetBaseURL(c *gin.Context, configBaseURL string) string {
	// If BaseURL is explicitly configured, use it
	if configBaseURL != "" {
		return configBaseURL
	}

	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
