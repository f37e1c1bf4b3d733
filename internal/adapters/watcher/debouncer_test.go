package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/devshell/internal/adapters/watcher"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *recorder) get() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}

func TestDebouncer_Coalesces(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/project/devshell.yaml")
		time.Sleep(50 * time.Millisecond)
		d.Add("/project/registry.yaml")
		d.Add("/project/devshell.yaml")

		// The second Add restarted the window.
		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, rec.get())

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()

		batches := rec.get()
		require.Len(t, batches, 1)
		assert.Equal(t, []string{"/project/devshell.yaml", "/project/registry.yaml"}, batches[0])
	})
}

func TestDebouncer_SeparateWindows(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/a")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		d.Add("/b")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, [][]string{{"/a"}, {"/b"}}, rec.get())
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(time.Hour, rec.record)

		d.Add("/a")
		d.Flush()
		assert.Equal(t, [][]string{{"/a"}}, rec.get())

		// Nothing pending: no empty batch.
		d.Flush()
		assert.Len(t, rec.get(), 1)
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		d := watcher.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/a")
		d.Stop()
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Empty(t, rec.get())
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		d := watcher.NewDebouncer(10*time.Millisecond, nil)
		d.Add("/a")
		time.Sleep(20 * time.Millisecond)
		synctest.Wait()
		d.Flush()
	})
}
