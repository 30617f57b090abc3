package frontdoor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fergusfinn/claude-host/internal/domain"
)

// statusFor maps a domain.ErrCode onto the HTTP status frontdoor answers
// with (spec.md §7 "Frontdoor maps codes to HTTP status... at the boundary
// only").
func statusFor(code domain.ErrCode) int {
	switch code {
	case domain.ErrInvalidName, domain.ErrInvalidArgument:
		return http.StatusBadRequest
	case domain.ErrNotOwned:
		return http.StatusForbidden
	case domain.ErrUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrAlreadyExists:
		return http.StatusConflict
	case domain.ErrExecutorOffline:
		return http.StatusServiceUnavailable
	case domain.ErrRPCTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON body with the status its domain.ErrCode
// maps to, defaulting to 500 for errors the domain taxonomy doesn't carry.
func respondError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	c.JSON(statusFor(code), gin.H{"error": err.Error()})
}
