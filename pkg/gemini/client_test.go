package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/socshift-backend/pkg/config"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.GeminiConfig{Model: "gemini-2.5-flash"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClientRequiresModel(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GeminiConfig{APIKey: "key"}); err == nil {
		t.Fatal("expected missing model error")
	}
}

func TestNilClientReportsMissingKey(t *testing.T) {
	var c *Client
	if _, err := c.GenerateJSON(context.Background(), "prompt", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
