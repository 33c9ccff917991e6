package bootstrap

import (
	"context"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/prometheus"
)

// countingPublisher records every publish outcome on the service metrics.
type countingPublisher struct {
	next    analysis.EventPublisher
	metrics *prometheus.AppMetrics
}

func (p countingPublisher) PublishEvent(ctx context.Context, eventType, key string, payload any) error {
	err := p.next.PublishEvent(ctx, eventType, key, payload)
	if p.metrics != nil {
		p.metrics.RecordEventPublished(err)
	}
	return err
}
