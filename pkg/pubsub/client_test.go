package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/socshift-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "soc-project"}

	if got := c.resourceName(kindTopic, "activity-events"); got != "projects/soc-project/topics/activity-events" {
		t.Fatalf("unexpected topic name %s", got)
	}
	if got := c.resourceName(kindTopic, "projects/other/topics/x"); got != "projects/other/topics/x" {
		t.Fatalf("full topic names should pass through, got %s", got)
	}
	if got := c.resourceName(kindSubscription, " activity-worker "); got != "projects/soc-project/subscriptions/activity-worker" {
		t.Fatalf("unexpected subscription name %s", got)
	}
	if got := c.resourceName(kindSubscription, "projects/other/topics/x"); got != "projects/soc-project/subscriptions/projects/other/topics/x" {
		t.Fatalf("a topic path is not a subscription path, got %s", got)
	}
	if got := (&Client{}).resourceName(kindTopic, "t"); got != "" {
		t.Fatalf("no project means no name, got %s", got)
	}
	if got := c.resourceName(kindSubscription, ""); got != "" {
		t.Fatalf("empty names stay empty, got %s", got)
	}
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{ActivityTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected errProjectIDRequired, got %v", err)
	}
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	if err != errNoTopic {
		t.Fatalf("expected errNoTopic, got %v", err)
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.ActivityPublisher() != nil || c.ActivitySubscription() != nil {
		t.Fatal("nil client should return nil handles")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
