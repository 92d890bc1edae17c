package nats

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

func setupNATS(t *testing.T) (*Client, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := natscontainer.Run(ctx, "nats:2.9-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server is ready"),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	terminate := func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate NATS container: %v", err)
		}
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		terminate()
		t.Fatalf("Failed to get NATS connection string: %v", err)
	}

	client, err := New(url)
	if err != nil {
		terminate()
		t.Fatalf("Failed to create NATS client: %v", err)
	}

	return client, func() {
		client.Close()
		terminate()
	}
}

func TestClient_Integration_Connection(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client, teardown := setupNATS(t)
	defer teardown()

	if client.conn == nil {
		t.Error("Expected connection to be initialized")
	}
	if client.js == nil {
		t.Error("Expected JetStream context to be initialized")
	}
}

func TestClient_Integration_PublishAndSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client, teardown := setupNATS(t)
	defer teardown()

	received := make(chan *types.CastEvent, 1)
	if err := client.SubscribeCastEvents(SubjectCastCorrected, func(e *types.CastEvent) {
		select {
		case received <- e:
		default:
		}
	}); err != nil {
		t.Fatalf("SubscribeCastEvents() failed: %v", err)
	}

	// Give subscription time to establish
	time.Sleep(500 * time.Millisecond)

	event := &types.CastEvent{
		CastID:     "cast-0001",
		SourceFile: "cast_001.hex",
		Model:      types.ModelCTD9.String(),
		Path:       "/data/corrected/cast_001.csv",
		Scans:      240,
		Timestamp:  time.Now().UTC(),
	}
	if err := client.PublishCastEvent(SubjectCastCorrected, event); err != nil {
		t.Fatalf("PublishCastEvent() failed: %v", err)
	}

	select {
	case got := <-received:
		if got.CastID != event.CastID {
			t.Errorf("CastID mismatch: got %v, want %v", got.CastID, event.CastID)
		}
		if got.Scans != event.Scans {
			t.Errorf("Scans mismatch: got %v, want %v", got.Scans, event.Scans)
		}
		if got.Model != event.Model {
			t.Errorf("Model mismatch: got %v, want %v", got.Model, event.Model)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("event not delivered")
	}
}
