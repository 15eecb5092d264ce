package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	var out string
	hit, err := svc.Get(ctx, "advisor:518002", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "advisor:518002", "tips", 0))
	hit, err = svc.Get(ctx, "advisor:518002", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "tips", out)

	require.NoError(t, svc.Delete(ctx, "advisor:518002"))
	hit, err = svc.Get(ctx, "advisor:518002", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(ctx, "k", "v", time.Minute))
	assert.Empty(t, repo.entries)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	var out string
	hit, err := nilSvc.Get(ctx, "k", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.Invalidate(ctx, "session:*"))
}

func TestCacheServiceSetError(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.setErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	assert.EqualError(t, svc.Set(context.Background(), "k", "v", 0), "redis down")
}
