package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocoin/internal/world"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, world.DefaultOptions(), c.World())
	assert.Equal(t, "In the beginning, the universe was created. "+
		"This has made a lot of people very angry and been widely regarded as a bad move.", c.Seed)
	assert.Equal(t, "file", c.Store().Backend)
	assert.Equal(t, "mapState", c.Store().Key)
	assert.InDelta(t, 36.98949379578401, c.Start().Lat, 1e-12)
	assert.InDelta(t, -122.06277128548504, c.Start().Long, 1e-12)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("VISIBILITY_RADIUS", "2")
	t.Setenv("SEED", "other")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("CLAMP_RESTORED", "true")

	c, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 2, c.Radius)
	assert.Equal(t, "other", c.Seed)
	assert.Equal(t, "redis", c.StoreBackend)
	assert.True(t, c.World().ClampRestored)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"TILE_WIDTH":         "0",
		"VISIBILITY_RADIUS":  "-1",
		"SPAWN_PROBABILITY":  "1.5",
		"MAX_INITIAL_TOKENS": "-3",
		"STORE_BACKEND":      "etcd",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := Parse()
			assert.ErrorContains(t, err, k)
		})
	}

	t.Run("tile width below int32 index range", func(t *testing.T) {
		t.Setenv("TILE_WIDTH", "1e-8")
		_, err := Parse()
		assert.ErrorContains(t, err, "TILE_WIDTH")
	})

	t.Run("unparseable", func(t *testing.T) {
		t.Setenv("VISIBILITY_RADIUS", "lots")
		_, err := Parse()
		assert.Error(t, err)
	})
}
