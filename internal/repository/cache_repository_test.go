package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "timeline:1:units", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "timeline:1:units", map[string]int{"a": 1}, time.Minute))

	ok, err := repo.Reserve(ctx, "cooldown:step-report:abc", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, repo.Delete(ctx, "cooldown:step-report:abc"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "timeline:1:*"))
	assert.False(t, repo.Available())
}
