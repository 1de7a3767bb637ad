package metrics

import (
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("cycles_total", "Cycles run")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter value = %d, want 3", c.Value())
	}

	g := r.Gauge("queue_depth", "Pending items")
	g.Set(5)
	g.Dec()
	if g.Value() != 4 {
		t.Errorf("gauge value = %d, want 4", g.Value())
	}
}

func TestRegistryReturnsSameMetric(t *testing.T) {
	r := New()
	a := r.Counter("hits_total", "")
	b := r.Counter("hits_total", "")
	if a != b {
		t.Error("same name returned distinct counters")
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("fetch_total", "source", "sec")
	want := `fetch_total{source="sec"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if WithLabels("odd", "k") != "odd" {
		t.Error("odd kv count should return bare name")
	}
}

func TestRender(t *testing.T) {
	r := New()
	r.Counter(WithLabels("fetch_total", "source", "sec"), "Fetches per source").Add(7)
	r.Counter(WithLabels("fetch_total", "source", "eu_official_journal"), "").Inc()
	r.Gauge("cycle_phase", "Current phase").Set(2)
	h := r.Histogram("cycle_seconds", "Cycle duration", []float64{1, 5})
	h.Observe(0.5)
	h.Observe(3)

	out := r.Render()
	for _, want := range []string{
		"# TYPE fetch_total counter",
		`fetch_total{source="sec"} 7`,
		`fetch_total{source="eu_official_journal"} 1`,
		"cycle_phase 2",
		`cycle_seconds_bucket{le="1"} 1`,
		`cycle_seconds_bucket{le="5"} 2`,
		`cycle_seconds_bucket{le="+Inf"} 2`,
		"cycle_seconds_count 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q\n%s", want, out)
		}
	}
}
