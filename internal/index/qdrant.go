package index

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// payload field names used for every point.
const (
	payloadFilename = "filename"
	payloadURL      = "url"
	payloadCaption  = "caption"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings. Writer and
	// reader must agree on it or similarity queries are meaningless.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Store backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it with cosine distance if necessary), and returns a
// ready-to-use Store.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("index: collection name is required")
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("index: vector size is required")
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("index: failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("index: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("index: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Upsert stores or replaces the point keyed by doc.ID. Because the key is a
// deterministic function of the filename, re-processing the same blob
// overwrites its point: last write wins, never a duplicate row.
func (s *QdrantStore) Upsert(ctx context.Context, doc Document) (UpsertResult, error) {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectors(doc.Vector...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			payloadFilename: doc.Filename,
			payloadURL:      doc.URL,
			payloadCaption:  doc.Caption,
		}),
	}

	res, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return UpsertResult{Key: doc.ID}, fmt.Errorf("index: upsert %s failed: %w", doc.ID, err)
	}

	// The store's per-operation status is authoritative. Anything other
	// than acknowledged/completed counts as a rejection.
	status := res.GetStatus()
	succeeded := status == qdrant.UpdateStatus_Acknowledged || status == qdrant.UpdateStatus_Completed

	return UpsertResult{
		Succeeded: succeeded,
		Key:       doc.ID,
		Status:    status.String(),
	}, nil
}

// QuerySimilar performs a cosine similarity search and returns up to k hits
// ordered by descending score.
func (s *QdrantStore) QuerySimilar(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k < 1 {
		k = 1
	}

	limit := uint64(k)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("index: query failed: %w: %w", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hit := Hit{
			ID:    r.Id.GetUuid(),
			Score: r.Score,
		}
		if p := r.Payload; p != nil {
			if v, ok := p[payloadFilename]; ok {
				hit.Name = v.GetStringValue()
			}
			if v, ok := p[payloadURL]; ok {
				hit.URL = v.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Delete removes documents from the collection by their keys.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("index: delete failed: %w", err)
	}

	return nil
}

// Client exposes the underlying gRPC client for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
