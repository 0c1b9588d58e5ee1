package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.IncReply("admitted")
	m.IncIngest("typed", false)
	m.ObserveCapability("analyzer", "ok", time.Second)
	if got := m.RepliesTotal("admitted"); got != 0 {
		t.Fatalf("nil metrics counted: %v", got)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/users/:id/replies", "402", 30*time.Millisecond)
	m.IncReply("denied")
	m.IncReply("denied")
	m.IncIngest("screenshot", true)
	m.ObserveCapability("replier", "timeout", 20*time.Second)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`bt_api_requests_total{method="POST",route="/api/users/:id/replies",status="402"} 1`,
		`bt_replies_total{outcome="denied"} 2`,
		`bt_ingest_total{source="screenshot",degraded="true"} 1`,
		`bt_capability_requests_total{capability="replier",status="timeout"} 1`,
		`bt_capability_duration_seconds_bucket{capability="replier",le="20"} 1`,
		`bt_capability_duration_seconds_bucket{capability="replier",le="10"} 0`,
		"# TYPE bt_api_inflight_requests gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{"a\"b\\c\nd"})
	want := `{route="a\"b\\c\nd"}`
	if got != want {
		t.Fatalf("labelString: got %s want %s", got, want)
	}
	if got := withLe("", "0.5"); got != `{le="0.5"}` {
		t.Fatalf("withLe empty: %s", got)
	}
	if got := withLe(`{a="b"}`, "+Inf"); got != `{a="b",le="+Inf"}` {
		t.Fatalf("withLe: %s", got)
	}
}
