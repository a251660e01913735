package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	oai "github.com/openai/openai-go"

	"github.com/iksnae/fale-com-deus/internal"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want internal.GatewayErrorKind
	}{
		{"missing credential", fmt.Errorf("setup: %w", internal.ErrNoCredential), internal.GatewayConfiguration},
		{"openai 401", &oai.Error{StatusCode: 401}, internal.GatewayAuthorization},
		{"openai 403", &oai.Error{StatusCode: 403}, internal.GatewayAuthorization},
		{"gemini leaked", errors.New("Error 403: Your API key was reported as leaked. PERMISSION_DENIED"), internal.GatewayAuthorization},
		{"invalid api key", errors.New("invalid_api_key: Incorrect API key provided"), internal.GatewayAuthorization},
		{"deadline", context.DeadlineExceeded, internal.GatewayTransport},
		{"network", errors.New("connection refused"), internal.GatewayTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("send", tt.err)
			var gwErr *internal.GatewayError
			if !errors.As(err, &gwErr) {
				t.Fatalf("Classify() = %T, want *GatewayError", err)
			}
			if gwErr.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", gwErr.Kind, tt.want)
			}
			if gwErr.Op != "send" {
				t.Errorf("Op = %q, want send", gwErr.Op)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	orig := &internal.GatewayError{Kind: internal.GatewayConfiguration, Op: "open", Err: errors.New("x")}
	if got := Classify("send", orig); got != error(orig) {
		t.Errorf("Classify() = %v, want the original error", got)
	}
	if Classify("send", nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestClassify_CancelStaysDetectable(t *testing.T) {
	err := Classify("send", context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Error("errors.Is(context.Canceled) = false after Classify")
	}
}
