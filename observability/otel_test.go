package observability

import (
	"reflect"
	"testing"
)

func TestOtelSampleRatio(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 0.1},
		{"0.5", 0.5},
		{"-1", 0},
		{"7", 1},
		{"half", 0.1},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", tc.raw)
		if got := otelSampleRatio(); got != tc.want {
			t.Fatalf("ratio(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, broken ,x-tenant = quizbank,empty=")
	want := map[string]string{"x-api-key": "abc", "x-tenant": "quizbank"}
	if got := otelHeaders(); !reflect.DeepEqual(got, want) {
		t.Fatalf("headers = %v, want %v", got, want)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if got := otelHeaders(); got != nil {
		t.Fatalf("expected nil headers, got %v", got)
	}
}

func TestOtelEnabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	if otelEnabled() {
		t.Fatalf("expected tracing off by default")
	}
	t.Setenv("OTEL_ENABLED", "TRUE")
	if !otelEnabled() {
		t.Fatalf("expected tracing on")
	}
}

func TestTracerIsUsableWithoutInit(t *testing.T) {
	_, span := Tracer().Start(t.Context(), "probe")
	span.End()
}
