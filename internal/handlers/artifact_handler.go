package handlers

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"ticket-tracker/internal/status"
	"ticket-tracker/internal/store"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ArtifactGetter interface {
	Get(ctx context.Context, bucket, key string) (*store.Artifact, error)
}

// ArtifactHandler serves stored price history charts with the content
// headers they were saved with.
type ArtifactHandler struct {
	artifacts ArtifactGetter
	bucket    string
	keyPrefix string
}

func NewArtifactHandler(artifacts ArtifactGetter, bucket, keyPrefix string) *ArtifactHandler {
	return &ArtifactHandler{
		artifacts: artifacts,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

// GetChart - Serve /price_history/{file}
func (h *ArtifactHandler) GetChart(e *core.RequestEvent) error {
	file := e.Request.PathValue("file")
	if file == "" || strings.Contains(file, "/") || path.Clean(file) != file {
		return apis.NewBadRequestError("Invalid file name", nil)
	}

	artifact, err := h.artifacts.Get(e.Request.Context(), h.bucket, h.keyPrefix+"/"+file)
	if errors.Is(err, status.ErrArtifactNotFound) {
		return apis.NewNotFoundError("Chart not found", err)
	}
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to get chart", err)
	}

	if artifact.ContentEncoding != "" {
		e.Response.Header().Set("Content-Encoding", artifact.ContentEncoding)
	}
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return e.Blob(http.StatusOK, contentType, artifact.Body)
}
