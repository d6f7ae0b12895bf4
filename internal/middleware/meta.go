package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/pkg/middleware/requestid"
)

const (
	metaKey      = "response_meta"
	metaStartKey = "response_meta_start"
)

// WithResponseMeta stamps the request start used for processing_time_ms.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaMap(c)["cache_hit"] = hit
}

// ResponseMeta returns the envelope meta collected for c with the request id
// and the time elapsed since WithResponseMeta ran. Without the middleware the
// elapsed time is left out.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	meta := metaMap(c)
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	if v, ok := c.Get(metaStartKey); ok {
		if start, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	return meta
}

func metaMap(c *gin.Context) map[string]interface{} {
	if v, ok := c.Get(metaKey); ok {
		if meta, ok := v.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(metaKey, meta)
	return meta
}
