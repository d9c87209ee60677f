package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(Ledger.OperationsTotal.WithLabelValues("record_payment", "error"))

	RecordOperation("record_payment", errors.New("boom"))

	after := testutil.ToFloat64(Ledger.OperationsTotal.WithLabelValues("record_payment", "error"))
	assert.Equal(t, before+1, after)
}

func TestRecordAmount_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(Ledger.AmountTotal.WithLabelValues("grant_waiver"))

	RecordAmount("grant_waiver", 0)
	RecordAmount("grant_waiver", 250)

	assert.Equal(t, before+250, testutil.ToFloat64(Ledger.AmountTotal.WithLabelValues("grant_waiver")))
}

func TestRecordTransition_SkipsNoop(t *testing.T) {
	before := testutil.ToFloat64(Ledger.StatusTransitions.WithLabelValues("active", "active"))

	RecordTransition("active", "active")

	assert.Equal(t, before, testutil.ToFloat64(Ledger.StatusTransitions.WithLabelValues("active", "active")))
}

func TestRecordSweep(t *testing.T) {
	before := testutil.ToFloat64(Sweep.MarkedTotal)

	RecordSweep(time.Now(), 3, nil)

	assert.Equal(t, before+3, testutil.ToFloat64(Sweep.MarkedTotal))
	assert.Greater(t, testutil.ToFloat64(Sweep.LastRunEpoch), float64(0))
}
