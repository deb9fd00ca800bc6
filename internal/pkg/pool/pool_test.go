package pool

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigCache(t *testing.T) {
	cache, err := NewBigCache(8, time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get("meta:1")
	assert.False(t, ok)

	require.NoError(t, cache.Set("meta:1", []byte(`{"_forum_topic_count":"3"}`)))
	data, ok := cache.Get("meta:1")
	assert.True(t, ok)
	assert.Equal(t, `{"_forum_topic_count":"3"}`, string(data))
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Remove("meta:1"))
	require.NoError(t, cache.Remove("meta:1"), "removing a missing key is not an error")
	_, ok = cache.Get("meta:1")
	assert.False(t, ok)

	require.NoError(t, cache.Set("meta:2", []byte("x")))
	require.NoError(t, cache.Flush())
	assert.Equal(t, 0, cache.Len())
}

func BenchmarkBigCache_Get(b *testing.B) {
	cache, err := NewBigCache(64, 10*time.Minute)
	if err != nil {
		b.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	value := []byte(`{"_forum_topic_count":"42","_forum_reply_count":"1337"}`)
	for i := 0; i < 10000; i++ {
		cache.Set("meta:"+strconv.Itoa(i), value)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Get("meta:" + strconv.Itoa(i%10000))
	}
}
