package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger probes a Qdrant instance for the readiness endpoint.
type QdrantPinger struct {
	client *qdrant.Client
}

// NewQdrantPinger wraps an existing Qdrant client as a Pinger.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name implements Pinger.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping implements Pinger via the Qdrant health check RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}
