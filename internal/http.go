package app

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	. "outpass-control/internal/config"
	routes "outpass-control/internal/routes"

	"github.com/gin-gonic/gin"
)

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")

	// Disable caching
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// Middleware to check if the IP is allowed.
func IPAccessControl(allowedCIDRs []string) gin.HandlerFunc {
	// Parse allowed CIDRs
	var parsedCIDRs []*net.IPNet

	// Allow local networks in debug mode
	if os.Getenv("GIN_MODE") != "release" {
		localhostCIDRs := []string{"127.0.0.1/8", "::1/128"}
		allowedCIDRs = append(allowedCIDRs, localhostCIDRs...)
	}

	for _, cidr := range allowedCIDRs {
		_, net, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("Invalid CIDR", "cidr", cidr)
			continue
		}
		slog.Debug("Allowed CIDR", "cidr", cidr)
		parsedCIDRs = append(parsedCIDRs, net)
	}

	return func(c *gin.Context) {
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil {
			// Should not happen
			slog.Warn("Invalid client IP", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		for _, cidr := range parsedCIDRs {
			if cidr.Contains(clientIP) {
				c.Next()
				return
			}
		}
		slog.Warn("IP not allowed", "ip", clientIP)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

func HTTPServer() *gin.Engine {
	r := gin.Default()

	if Cfg.AllowedNetworks != "" {
		slog.Debug("Enabling IP access control", "allowed_networks", Cfg.AllowedNetworks)
		var allowedCIDRs []string

		for cidr := range strings.SplitSeq(Cfg.AllowedNetworks, ",") {
			// Remove spaces and ignore empty sets
			if cidr := strings.TrimSpace(cidr); cidr != "" {
				allowedCIDRs = append(allowedCIDRs, cidr)
			}
		}

		r.Use(IPAccessControl(allowedCIDRs))
	}
	r.Use(securityHeaders)
	r.Use(routes.ErrorHandler())

	r.GET("/ping", func(c *gin.Context) {
		msg := c.Query("ping")
		if msg == "" {
			msg = "pong"
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	})

	return r
}

// RegisterRoutes attaches all route groups. Authentication and RBAC run
// per group; the provisioning registration endpoints stay open so a new
// station can announce itself.
func RegisterRoutes(r *gin.Engine) {
	routes.Health(&r.RouterGroup)

	routes.AuthRoutes(r.Group("/auth"))

	routes.ProvisioningApi(r.Group("/api/provision"))

	authed := func(path string) *gin.RouterGroup {
		rg := r.Group(path)
		rg.Use(routes.AuthMiddleware())
		return rg
	}

	routes.OutpassRoutes(authed("/api/outpass"))
	routes.ReviewRoutes(authed("/api/review"))
	routes.GateRoutes(authed("/api/gate"))
	routes.AdminRoutes(authed("/api/admin"))
}
