package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pos-backend/pkg/redis"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type balanceView struct {
	Quantity int `json:"quantity"`
}

func TestRedisCacheRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryStore()
	c := newRedisCache(mem, "pos:cache", time.Minute, nil)

	business := uuid.New()
	other := uuid.New()
	key := BalanceKey(business, uuid.New(), uuid.New())
	otherKey := BalanceKey(other, uuid.New(), uuid.New())

	require.NoError(t, c.Set(ctx, key, balanceView{Quantity: 7}))
	require.NoError(t, c.Set(ctx, otherKey, balanceView{Quantity: 1}))
	require.Equal(t, time.Minute, mem.ttls["pos:cache:"+key])

	var got balanceView
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 7, got.Quantity)

	require.NoError(t, c.InvalidatePrefix(ctx, BalancePrefix(business)))

	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)

	hit, err = c.Get(ctx, otherKey, &got)
	require.NoError(t, err)
	require.True(t, hit, "other business entries must survive")
}

func TestNoopNeverHits(t *testing.T) {
	var c Cache = Noop{}
	var v balanceView
	hit, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.Set(context.Background(), "k", v))
	require.NoError(t, c.InvalidatePrefix(context.Background(), "k"))
}

func TestNewRedisRequiresClient(t *testing.T) {
	_, err := NewRedis(nil, time.Second, nil)
	require.Error(t, err)
}
