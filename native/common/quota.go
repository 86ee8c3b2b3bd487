package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current per-account usage counters.
type QuotaNow struct {
	OpCount uint32
	EpochID uint64
}

// Quota defines the operation limits enforced per account per epoch.
type Quota struct {
	MaxOpsPerEpoch uint32
	EpochSeconds   uint32
}

// Enabled reports whether the quota imposes any limit at all.
func (q Quota) Enabled() bool {
	return q.MaxOpsPerEpoch > 0 && q.EpochSeconds > 0
}

// Epoch maps a unix timestamp onto the quota's epoch counter.
func (q Quota) Epoch(nowUnix int64) uint64 {
	if q.EpochSeconds == 0 || nowUnix <= 0 {
		return 0
	}
	return uint64(nowUnix) / uint64(q.EpochSeconds)
}

// CheckQuota verifies whether one more operation fits within the configured
// quota. The returned QuotaNow holds the updated counters when it does.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}
	if next.OpCount == math.MaxUint32 {
		return prev, ErrQuotaCounterOverflow
	}
	next.OpCount++
	if q.MaxOpsPerEpoch > 0 && next.OpCount > q.MaxOpsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}
	return next, nil
}
