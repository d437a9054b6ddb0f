package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordNativeCall(t *testing.T) {
	nativeCallsTotal.Reset()

	RecordNativeCall("unpack", "success")
	RecordNativeCall("unpack", "success")
	RecordNativeCall("unpack", "library_error")

	if got := testutil.ToFloat64(nativeCallsTotal.WithLabelValues("unpack", "success")); got != 2 {
		t.Errorf("expected 2 successful unpack calls, got %f", got)
	}
	if got := testutil.ToFloat64(nativeCallsTotal.WithLabelValues("unpack", "library_error")); got != 1 {
		t.Errorf("expected 1 failed unpack call, got %f", got)
	}
}

func TestRecordSessionLifecycle(t *testing.T) {
	before := testutil.ToFloat64(sessionsOpenedTotal)
	sessionsReleasedTotal.Reset()

	RecordSessionOpened()
	RecordSessionReleased(ViaClose)

	if got := testutil.ToFloat64(sessionsOpenedTotal) - before; got != 1 {
		t.Errorf("expected 1 opened session, got %f", got)
	}
	if got := testutil.ToFloat64(sessionsReleasedTotal.WithLabelValues(ViaClose)); got != 1 {
		t.Errorf("expected 1 released session, got %f", got)
	}
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter(":0")
	RecordDecode("success", 0.3)
	SetLibraryInfo("0.21.2-Release")

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"rawkit_decode_duration_seconds", "rawkit_library_info"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}
