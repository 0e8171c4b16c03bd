package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	// Verify all metrics are initialized
	if m.KeysIssuedTotal == nil {
		t.Error("KeysIssuedTotal is nil")
	}
	if m.KeysRevokedTotal == nil {
		t.Error("KeysRevokedTotal is nil")
	}
	if m.KeyValidationsTotal == nil {
		t.Error("KeyValidationsTotal is nil")
	}
	if m.KeyValidationDuration == nil {
		t.Error("KeyValidationDuration is nil")
	}
	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration is nil")
	}
	if m.DBQueryTotal == nil {
		t.Error("DBQueryTotal is nil")
	}
	if m.DBErrorsTotal == nil {
		t.Error("DBErrorsTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration is nil")
	}
	if m.HTTPResponseSize == nil {
		t.Error("HTTPResponseSize is nil")
	}
}

func TestRecordKeyValidation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordKeyValidation("success", 10*time.Millisecond)
	m.RecordKeyValidation("success", 20*time.Millisecond)
	m.RecordKeyValidation("hash_mismatch", 15*time.Millisecond)

	okCount := testutil.ToFloat64(m.KeyValidationsTotal.WithLabelValues("success"))
	if okCount != 2 {
		t.Errorf("Expected success count to be 2, got %f", okCount)
	}

	badCount := testutil.ToFloat64(m.KeyValidationsTotal.WithLabelValues("hash_mismatch"))
	if badCount != 1 {
		t.Errorf("Expected hash_mismatch count to be 1, got %f", badCount)
	}
}

func TestRecordDBQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDBQuery("select", "api_keys", 5*time.Millisecond)
	m.RecordDBQuery("select", "api_keys", 5*time.Millisecond)
	m.RecordDBError("insert", "api_keys")

	queryCount := testutil.ToFloat64(m.DBQueryTotal.WithLabelValues("select", "api_keys"))
	if queryCount != 2 {
		t.Errorf("Expected query count to be 2, got %f", queryCount)
	}

	errCount := testutil.ToFloat64(m.DBErrorsTotal.WithLabelValues("insert", "api_keys"))
	if errCount != 1 {
		t.Errorf("Expected error count to be 1, got %f", errCount)
	}
}

func TestRecordKeyLifecycleCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordKeyIssued()
	m.RecordKeyIssued()
	m.RecordKeyRevoked()

	if got := testutil.ToFloat64(m.KeysIssuedTotal); got != 2 {
		t.Errorf("Expected issued count to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.KeysRevokedTotal); got != 1 {
		t.Errorf("Expected revoked count to be 1, got %f", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("GET", "/api/keys", "200", 10*time.Millisecond, 512)
	m.RecordHTTPRequest("GET", "/api/keys", "200", 12*time.Millisecond, 256)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/keys", "200"))
	if count != 2 {
		t.Errorf("Expected request count to be 2, got %f", count)
	}
}

func TestTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	globalMetrics = NewMetrics(reg)
	defer func() { globalMetrics = nil }()

	timer := GetMetrics().NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.ObserveValidation("success")

	if timer.Duration() < 5*time.Millisecond {
		t.Errorf("Expected at least 5ms elapsed, got %s", timer.Duration())
	}

	count := testutil.ToFloat64(GetMetrics().KeyValidationsTotal.WithLabelValues("success"))
	if count != 1 {
		t.Errorf("Expected validation count to be 1, got %f", count)
	}
}
