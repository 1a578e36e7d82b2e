package store

import (
	"context"
	"testing"

	"ticket-tracker/internal/status"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStore_PutGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpected()
	s := NewArtifactStore(db)

	body := []byte{0x1f, 0x8b, 0x08}
	mock.ExpectHSet("artifact:price-history:price_history/7.js",
		"body", body,
		"content_type", "application/javascript",
		"content_encoding", "gzip",
	).SetVal(3)
	mock.ExpectHGetAll("artifact:price-history:price_history/7.js").SetVal(map[string]string{
		"body":             string(body),
		"content_type":     "application/javascript",
		"content_encoding": "gzip",
	})

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "price-history", "price_history/7.js", body, "application/javascript", "gzip"))

	artifact, err := s.Get(ctx, "price-history", "price_history/7.js")
	require.NoError(t, err)
	assert.Equal(t, body, artifact.Body)
	assert.Equal(t, "application/javascript", artifact.ContentType)
	assert.Equal(t, "gzip", artifact.ContentEncoding)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArtifactStore_GetMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpected()

	mock.ExpectHGetAll("artifact:price-history:price_history/8.js").SetVal(map[string]string{})

	artifact, err := NewArtifactStore(db).Get(context.Background(), "price-history", "price_history/8.js")

	assert.Nil(t, artifact)
	assert.ErrorIs(t, err, status.ErrArtifactNotFound)
}
