package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	if got := carrier.Get("traceparent"); got != "" {
		t.Fatalf("expected empty value on nil header, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys on nil header, got %v", keys)
	}

	carrier.Set("traceparent", "00-4bf92f3577b34da6-00f067aa0ba902b7-01")
	if got := carrier.Get("traceparent"); got != "00-4bf92f3577b34da6-00f067aa0ba902b7-01" {
		t.Fatalf("unexpected value: %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
