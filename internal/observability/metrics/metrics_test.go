package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewChannelMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChannelMetrics(reg)

	m.ObserveInbound("whatsapp", "ok")
	m.ObserveOutbound("meta", "sent")
	m.ObserveTenantFallback("voice")
	m.ObserveGenerateLatency("whatsapp", 0.42)
	m.ObserveWebhookLatency("whatsapp", 0.05)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 5 {
		t.Fatalf("expected 5 metric families, got %d", len(families))
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ChannelMetrics
	m.ObserveInbound("whatsapp", "ok")
	m.ObserveOutbound("whatsapp", "ok")
	m.ObserveTenantFallback("whatsapp")
	m.ObserveGenerateLatency("whatsapp", 1)
	m.ObserveWebhookLatency("whatsapp", 1)
}
