package metrics

import (
	"context"
	"fleet-tracker/internal/fleet"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"time"
)

const collectTimeout = 5 * time.Second

var (
	totalDesc = prometheus.NewDesc("fleet_tracker_entities_total",
		"Number of registered records per kind.", []string{"kind"}, nil)
	onlineDesc = prometheus.NewDesc("fleet_tracker_entities_online",
		"Number of records per kind contacted within the TTL window.", []string{"kind"}, nil)
)

type kpiSource interface {
	For(ctx context.Context, kind fleet.Kind) (fleet.KPI, error)
}

// KPICollector queries the KPIs on every scrape.
type KPICollector struct {
	logger *zap.SugaredLogger
	kpis   kpiSource
}

func NewKPICollector(logger *zap.SugaredLogger, kpis kpiSource) *KPICollector {
	return &KPICollector{logger: logger, kpis: kpis}
}

func (c *KPICollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- totalDesc
	ch <- onlineDesc
}

func (c *KPICollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	for _, kind := range fleet.Kinds {
		kpi, err := c.kpis.For(ctx, kind)
		if err != nil {
			c.logger.Errorw("failed to collect kpis", "kind", kind, "error", err)
			ch <- prometheus.NewInvalidMetric(totalDesc, err)
			continue
		}

		ch <- prometheus.MustNewConstMetric(totalDesc, prometheus.GaugeValue, float64(kpi.Total), kind.String())
		ch <- prometheus.MustNewConstMetric(onlineDesc, prometheus.GaugeValue, float64(kpi.Online), kind.String())
	}
}
