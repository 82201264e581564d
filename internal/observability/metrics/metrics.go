package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChannelMetrics exposes counters/histograms for inbound webhook flows and
// outbound channel dispatch.
type ChannelMetrics struct {
	inboundTotal    *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	fallbackTotal   *prometheus.CounterVec
	generateLatency *prometheus.HistogramVec
	webhookLatency  *prometheus.HistogramVec
}

func NewChannelMetrics(reg prometheus.Registerer) *ChannelMetrics {
	m := &ChannelMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jawab",
			Subsystem: "channels",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound channel webhooks",
		}, []string{"channel", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jawab",
			Subsystem: "channels",
			Name:      "outbound_total",
			Help:      "Total outbound channel sends",
		}, []string{"channel", "status"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jawab",
			Subsystem: "channels",
			Name:      "tenant_fallback_total",
			Help:      "Inbound messages routed via the fallback-to-first-tenant policy",
		}, []string{"channel"}),
		generateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jawab",
			Subsystem: "conversation",
			Name:      "generate_latency_seconds",
			Help:      "Latency of LLM reply generation including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jawab",
			Subsystem: "channels",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.fallbackTotal, m.generateLatency, m.webhookLatency)
	return m
}

func (m *ChannelMetrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *ChannelMetrics) ObserveOutbound(channel, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *ChannelMetrics) ObserveTenantFallback(channel string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(channel).Inc()
}

func (m *ChannelMetrics) ObserveGenerateLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.generateLatency.WithLabelValues(channel).Observe(seconds)
}

func (m *ChannelMetrics) ObserveWebhookLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(channel).Observe(seconds)
}
