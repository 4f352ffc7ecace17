package findings

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/traversal"
)

func TestFromSignalMapsSignificantKinds(t *testing.T) {
	cases := map[traversal.SignalKind]Kind{
		traversal.SignalPropertyViolation: KindInvariantViolation,
		traversal.SignalDiscrepancy:       KindDiscrepancy,
		traversal.SignalCrash:             KindGuestCrash,
		traversal.SignalTimeout:           KindDeadlineExceeded,
	}
	for sig, want := range cases {
		got, ok := FromSignal(sig)
		if !ok || got != want {
			t.Fatalf("signal %q: expected %q, got %q ok=%v", sig, want, got, ok)
		}
	}
}

func TestFromSignalRejectsSteeringSignals(t *testing.T) {
	for _, sig := range []traversal.SignalKind{
		traversal.SignalCoverageDelta,
		traversal.SignalGuardFailure,
		traversal.SignalCoveragePlateau,
	} {
		if _, ok := FromSignal(sig); ok {
			t.Fatalf("expected %q to not map to a finding kind", sig)
		}
	}
}
