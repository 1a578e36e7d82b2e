package store

import (
	"context"
	"fmt"

	"ticket-tracker/internal/status"

	"github.com/redis/go-redis/v9"
)

// Artifact is a stored object together with the headers it is served with.
type Artifact struct {
	Body            []byte
	ContentType     string
	ContentEncoding string
}

// ArtifactStore keeps generated files in Redis hashes keyed by bucket and
// object key.
type ArtifactStore struct {
	rdb redis.Cmdable
}

func NewArtifactStore(rdb redis.Cmdable) *ArtifactStore {
	return &ArtifactStore{rdb: rdb}
}

func artifactKey(bucket, key string) string {
	return fmt.Sprintf("artifact:%s:%s", bucket, key)
}

func (s *ArtifactStore) Put(ctx context.Context, bucket, key string, body []byte, contentType, contentEncoding string) error {
	err := s.rdb.HSet(ctx, artifactKey(bucket, key),
		"body", body,
		"content_type", contentType,
		"content_encoding", contentEncoding,
	).Err()
	if err != nil {
		return fmt.Errorf("put artifact %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get returns the artifact or status.ErrArtifactNotFound.
func (s *ArtifactStore) Get(ctx context.Context, bucket, key string) (*Artifact, error) {
	fields, err := s.rdb.HGetAll(ctx, artifactKey(bucket, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get artifact %s/%s: %w", bucket, key, err)
	}
	body, ok := fields["body"]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, status.ErrArtifactNotFound)
	}

	return &Artifact{
		Body:            []byte(body),
		ContentType:     fields["content_type"],
		ContentEncoding: fields["content_encoding"],
	}, nil
}
