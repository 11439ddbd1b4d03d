package buildings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8ddieHu0314/Course-Mapper-sub000/testutil"
)

const sample = `
[[building]]
name = "Gates Hall"
aliases = ["Gates", "GTS"]
lat = 42.44495
lng = -76.48131

[[building]]
name = "Statler Hall"
lat = 42.44583
lng = -76.48216
`

func TestLoad_embedded(t *testing.T) {
	g, err := Load("", testutil.NewLogger(t))
	require.NoError(t, err)
	assert.Greater(t, g.Len(), 10)

	loc, ok := g.Lookup("statler hall")
	require.True(t, ok)
	assert.InDelta(t, 42.4458, loc.Lat, 1e-3)

	_, ok = g.Lookup("Hogwarts")
	assert.False(t, ok)
}

func TestGazetteer_Lookup(t *testing.T) {
	buildings, err := Parse([]byte(sample))
	require.NoError(t, err)
	g := New(buildings, testutil.NewLogger(t))

	tests := []struct {
		name string
		want bool
	}{
		{"Gates Hall", true},
		{"  gates   HALL ", true},
		{"GTS", true},
		{"gates", true},
		{"Statler Hall", true},
		{"Statler", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := g.Lookup(tt.name)
			assert.Equal(t, tt.want, ok)
		})
	}
	assert.Equal(t, "Gates Hall", g.All()[0].Name)
}

func TestParse_invalid(t *testing.T) {
	_, err := Parse([]byte(`[[building]]
lat = 1
lng = 1`))
	assert.EqualError(t, err, "building #1: name is required")

	_, err = Parse([]byte(`[[building]]
name = "Nowhere"`))
	assert.EqualError(t, err, `building "Nowhere": invalid coordinates`)

	_, err = Parse([]byte(`not toml [`))
	assert.Error(t, err)
}

func TestGazetteer_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildings.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	g, err := Load(path, testutil.NewLogger(t))
	require.NoError(t, err)
	_, ok := g.Lookup("Uris Hall")
	require.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, g.Watch(ctx))

	updated := sample + `
[[building]]
name = "Uris Hall"
lat = 42.44722
lng = -76.48243
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := g.Lookup("Uris Hall")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	// an invalid file keeps the last good index
	require.NoError(t, os.WriteFile(path, []byte("broken ["), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 3, g.Len())
}
