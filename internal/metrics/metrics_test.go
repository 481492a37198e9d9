package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserversDoNotPanicUnregistered(t *testing.T) {
	ObserveTick()
	ObserveDroppedSample()
	ObserveAlert("critical")
	ObserveConflict("memory")
	ObserveStrategySwitch()
	ObserveAnalysis(-1)
}
