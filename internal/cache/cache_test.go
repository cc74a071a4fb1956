package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		out[i] = json.RawMessage(item)
	}
	return out
}

func TestPutThenGetWithinTTL(t *testing.T) {
	c := New(time.Hour)
	c.Put("k", payload(`{"a":1}`))

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"a":1}`, string(got[0]))
}

func TestGetAfterTTLIsMiss(t *testing.T) {
	c := New(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Put("k", payload(`1`))

	current = current.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry still fresh just before TTL")

	current = current.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry stale after TTL")
	assert.Equal(t, 0, c.Len(), "stale entry evicted on read")
}

func TestPutOverwrites(t *testing.T) {
	c := New(time.Hour)
	c.Put("k", payload(`1`))
	c.Put("k", payload(`2`))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, `2`, string(got[0]))
}

func TestClear(t *testing.T) {
	c := New(time.Hour)
	c.Put("a", payload(`1`))
	c.Put("b", payload(`2`))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestKeyIsOrderIndependent(t *testing.T) {
	k1 := Key("ibge", "/municipios", map[string]string{"uf": "GO", "pagina": "1"})
	k2 := Key("ibge", "/municipios", map[string]string{"pagina": "1", "uf": "GO"})
	assert.Equal(t, k1, k2)
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("ibge", "/municipios", map[string]string{"uf": "GO"})
	assert.NotEqual(t, base, Key("ibge", "/municipios", map[string]string{"uf": "SP"}))
	assert.NotEqual(t, base, Key("ibge", "/estados", map[string]string{"uf": "GO"}))
	assert.NotEqual(t, base, Key("camara", "/municipios", map[string]string{"uf": "GO"}))
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Put(fmt.Sprintf("k%d", n%10), payload(`1`))
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(fmt.Sprintf("k%d", n%10))
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 10)
}
