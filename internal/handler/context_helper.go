package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/middleware"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// requireClaims answers 401 when the request carries no claims.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// bindJSON decodes the body into dest, answering 400 with message on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// bindQuery decodes the query string into dest, answering 400 with message on failure.
func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// timedMeta builds the envelope meta for a cacheable read. start is used when
// the response meta middleware did not run.
func timedMeta(c *gin.Context, start time.Time, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ResponseMeta(c)
	if _, ok := meta["processing_time_ms"]; !ok {
		meta["processing_time_ms"] = time.Since(start).Milliseconds()
	}
	return meta
}
