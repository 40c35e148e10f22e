package artifact

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissio/internal/artifact/adapters"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string, any) (string, error) {
	return "", errors.New("renderer unavailable")
}

func TestSubmitAndPoll(t *testing.T) {
	t.Run("submitted job renders to a ready artifact", func(t *testing.T) {
		renderer := adapters.NewStubRenderer()
		service := NewService(NewInMemoryStore(), renderer, nil, slog.New(slog.DiscardHandler))

		jobID, err := service.Submit(context.Background(), "acta", map[string]string{"call": "ADM2026"})
		require.NoError(t, err)
		service.Wait()

		job, err := service.Poll(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, JobStatusReady, job.Status)
		assert.NotEmpty(t, job.ArtifactURL)
		require.NotNil(t, job.CompletedAt)
		assert.Equal(t, []string{job.ArtifactURL}, renderer.Rendered())
	})

	t.Run("renderer failure marks the job failed", func(t *testing.T) {
		service := NewService(NewInMemoryStore(), failingRenderer{}, nil, slog.New(slog.DiscardHandler))

		jobID, err := service.Submit(context.Background(), "receipt", nil)
		require.NoError(t, err)
		service.Wait()

		job, err := service.Poll(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, JobStatusFailed, job.Status)
		assert.Equal(t, "renderer unavailable", job.Error)
		assert.Empty(t, job.ArtifactURL)
	})

	t.Run("unknown job yields not found", func(t *testing.T) {
		service := NewService(NewInMemoryStore(), adapters.NewStubRenderer(), nil, slog.New(slog.DiscardHandler))
		_, err := service.Poll(context.Background(), id.NewJobID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
