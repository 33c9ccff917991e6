package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// Metrics records request counts, latency and in-flight requests. Paths are
// labelled by route template so label cardinality stays bounded.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		active := m.HTTPActiveRequests.WithLabelValues(method, path)
		active.Inc()
		defer active.Dec()
		start := time.Now()
		c.Next()

		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
		if err := c.Errors.Last(); err != nil {
			m.RecordError("http", string(errors.GetCode(err.Err)))
		}
	}
}
