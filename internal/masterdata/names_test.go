package masterdata

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	customers map[int64]*Customer
	stores    map[int64]*Store
	lookups   int
}

func (m *memorySource) GetCustomer(ctx context.Context, customerNo int64, userID string) (*Customer, error) {
	m.lookups++
	return m.customers[customerNo], nil
}

func (m *memorySource) GetStore(ctx context.Context, storeNo int64, userID string) (*Store, error) {
	m.lookups++
	return m.stores[storeNo], nil
}

func TestNameCacheReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	src := &memorySource{
		customers: map[int64]*Customer{7: {CustomerNo: 7, Name: "Acme Traders"}},
		stores:    map[int64]*Store{3: {StoreNo: 3, Name: "Main Branch"}},
	}
	cache := NewNameCache(src, client, time.Minute)
	ctx := context.Background()

	name, err := cache.CustomerName(ctx, 7, "u1")
	require.NoError(t, err)
	require.Equal(t, "Acme Traders", name)
	require.Equal(t, 1, src.lookups)

	// second read served from redis
	name, err = cache.CustomerName(ctx, 7, "u1")
	require.NoError(t, err)
	require.Equal(t, "Acme Traders", name)
	require.Equal(t, 1, src.lookups)

	name, err = cache.StoreName(ctx, 3, "u1")
	require.NoError(t, err)
	require.Equal(t, "Main Branch", name)
	require.Equal(t, 2, src.lookups)
}

func TestNameCacheNilClientFallsBack(t *testing.T) {
	src := &memorySource{
		customers: map[int64]*Customer{7: {CustomerNo: 7, Name: "Acme Traders"}},
	}
	cache := NewNameCache(src, nil, time.Minute)

	name, err := cache.CustomerName(context.Background(), 7, "u1")
	require.NoError(t, err)
	require.Equal(t, "Acme Traders", name)
	require.Equal(t, 1, src.lookups)
}
