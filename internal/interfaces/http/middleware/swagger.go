package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erp/marketplace-gateway/internal/interfaces/http/dto"
)

// SwaggerConfig controls access to the API documentation
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // admin bearer token required
	AllowedIPs  []string // single IPs or CIDRs; empty allows every client
}

// SwaggerProtection guards the /swagger routes. A disabled endpoint answers
// 404; clients outside AllowedIPs get 403; with RequireAuth the auth handler
// runs before the docs are served.
func SwaggerProtection(cfg SwaggerConfig, auth gin.HandlerFunc) gin.HandlerFunc {
	allowed := parseAllowList(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "API documentation is not available", GetRequestID(c)))
			return
		}
		if len(cfg.AllowedIPs) > 0 && !allowed.contains(net.ParseIP(c.ClientIP())) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}
		if cfg.RequireAuth && auth != nil {
			auth(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

type allowList struct {
	ips  []net.IP
	nets []*net.IPNet
}

// parseAllowList skips entries that are neither an IP nor a CIDR
func parseAllowList(entries []string) allowList {
	var l allowList
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			if _, network, err := net.ParseCIDR(e); err == nil {
				l.nets = append(l.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			l.ips = append(l.ips, ip)
		}
	}
	return l
}

func (l allowList) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
