package common

import (
	"errors"
	"testing"
)

func TestCheckQuotaOpLimit(t *testing.T) {
	q := Quota{MaxOpsPerEpoch: 3, EpochSeconds: 60}
	now := QuotaNow{EpochID: 1}

	var err error
	for i := 0; i < 3; i++ {
		now, err = CheckQuota(q, 1, now)
		if err != nil {
			t.Fatalf("unexpected error at op %d: %v", i, err)
		}
	}
	if now.OpCount != 3 {
		t.Fatalf("unexpected op count: %d", now.OpCount)
	}

	denied, err := CheckQuota(q, 1, now)
	if !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
	if denied != now {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, now)
	if err != nil {
		t.Fatalf("unexpected error after epoch rollover: %v", err)
	}
	if rollover.EpochID != 2 || rollover.OpCount != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestQuotaEpoch(t *testing.T) {
	q := Quota{MaxOpsPerEpoch: 1, EpochSeconds: 60}
	if got := q.Epoch(120); got != 2 {
		t.Fatalf("unexpected epoch: %d", got)
	}
	if got := q.Epoch(0); got != 0 {
		t.Fatalf("epoch for zero timestamp should be 0, got %d", got)
	}
	if !q.Enabled() {
		t.Fatalf("quota with limits should be enabled")
	}
	if (Quota{}).Enabled() {
		t.Fatalf("zero quota should be disabled")
	}
}

func TestReentrancyLatch(t *testing.T) {
	latch := &ReentrancyLatch{}
	release, err := latch.Enter()
	if err != nil {
		t.Fatalf("first enter: %v", err)
	}
	if _, err := latch.Enter(); !errors.Is(err, ErrReentrancy) {
		t.Fatalf("expected ErrReentrancy, got %v", err)
	}
	release()
	release2, err := latch.Enter()
	if err != nil {
		t.Fatalf("enter after release: %v", err)
	}
	release2()
}
