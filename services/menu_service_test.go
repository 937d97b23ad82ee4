package services

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMenu(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMenuFromItemsDocument(t *testing.T) {
	path := writeMenu(t, `
items:
  - id: flat-white
    name: Flat White
    description: Ristretto and microfoam
    price: 4.5
    category: coffee
  - id: broken
    price: 2
`)
	items, source := NewMenuService(path).Items()
	assert.Equal(t, MenuSourceFile, source)
	require.Len(t, items, 1)
	assert.Equal(t, "Flat White", items[0].Name)
	assert.Equal(t, 4.5, items[0].Price)
}

func TestMenuFromBareList(t *testing.T) {
	path := writeMenu(t, `
- id: mocha
  name: Mocha
  price: 5.25
  category: coffee
`)
	items, source := NewMenuService(path).Items()
	assert.Equal(t, MenuSourceFile, source)
	require.Len(t, items, 1)
	assert.Equal(t, "mocha", items[0].ID)
}

func TestMenuFallsBackToDemo(t *testing.T) {
	cases := map[string]string{
		"no path":  "",
		"missing":  filepath.Join(t.TempDir(), "nope.yaml"),
		"empty":    writeMenu(t, ""),
		"invalid":  writeMenu(t, "items: [unclosed"),
		"no items": writeMenu(t, "items: []\n"),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			items, source := NewMenuService(path).Items()
			assert.Equal(t, MenuSourceDemo, source)
			require.Len(t, items, 4)
			assert.Equal(t, "Espresso", items[0].Name)
			assert.Equal(t, 3.50, items[0].Price)
		})
	}
}

func TestDemoMenuIsACopy(t *testing.T) {
	items := DemoMenu()
	items[0].Price = 0
	assert.Equal(t, 3.50, DemoMenu()[0].Price)
}

type fixedBackend string

func (b fixedBackend) ActiveName(context.Context) string { return string(b) }

func TestHeartbeatRunsJobsUntilCancelled(t *testing.T) {
	hb := NewHeartbeat(5*time.Millisecond, fixedBackend("memory"))
	var ticks atomic.Int32
	hb.Jobs = append(hb.Jobs, func(context.Context) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hb.Run(ctx) }()

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Greater(t, hb.Uptime(), time.Duration(0))
}
