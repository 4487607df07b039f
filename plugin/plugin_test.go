package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvndaai/filemeta/plugin"
	"github.com/mvndaai/filemeta/record"
)

type fakePlugin struct {
	plugin.GlobPlugin
	priority int
	result   record.Map
	err      error
}

func (f fakePlugin) Extract(fs afero.Fs, path string) (record.Map, error) {
	return f.result, f.err
}

func (f fakePlugin) Priority() int { return f.priority }

func TestLowerPriorityWinsCollision(t *testing.T) {
	high := fakePlugin{
		GlobPlugin: plugin.GlobPlugin{Pattern: "*"},
		priority:   10,
		result:     record.Map{"owner": record.String("high")},
	}
	low := fakePlugin{
		GlobPlugin: plugin.GlobPlugin{Pattern: "*"},
		priority:   1,
		result:     record.Map{"owner": record.String("low")},
	}

	reg := plugin.NewRegistry(high, low)
	merged, err := reg.ProcessFile(afero.NewMemMapFs(), "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "low", merged["owner"].Str, "lower-priority plugin must win the collision")
}

func TestNoSupportingPluginReturnsEmpty(t *testing.T) {
	p := fakePlugin{GlobPlugin: plugin.GlobPlugin{Pattern: "*.jpg"}, priority: 1}
	reg := plugin.NewRegistry(p)

	merged, err := reg.ProcessFile(afero.NewMemMapFs(), "/a.txt")
	require.NoError(t, err)
	assert.Empty(t, merged)
}

func TestPartialFailureIsSwallowed(t *testing.T) {
	ok := fakePlugin{
		GlobPlugin: plugin.GlobPlugin{Pattern: "*"},
		priority:   1,
		result:     record.Map{"owner": record.String("ok")},
	}
	failing := fakePlugin{
		GlobPlugin: plugin.GlobPlugin{Pattern: "*"},
		priority:   2,
		err:        errors.New("boom"),
	}

	reg := plugin.NewRegistry(ok, failing)
	merged, err := reg.ProcessFile(afero.NewMemMapFs(), "/a.txt")
	require.NoError(t, err, "expected success when at least one plugin succeeds")
	assert.Equal(t, "ok", merged["owner"].Str)
}

func TestAllFailingReturnsError(t *testing.T) {
	failing := fakePlugin{GlobPlugin: plugin.GlobPlugin{Pattern: "*"}, priority: 1, err: errors.New("boom")}
	reg := plugin.NewRegistry(failing)

	_, err := reg.ProcessFile(afero.NewMemMapFs(), "/a.txt")
	assert.ErrorIs(t, err, plugin.ErrAllFailed)
}

func TestProcessFileAsyncInvokesCallbackExactlyOnce(t *testing.T) {
	p := fakePlugin{
		GlobPlugin: plugin.GlobPlugin{Pattern: "*"},
		priority:   1,
		result:     record.Map{"owner": record.String("async")},
	}
	reg := plugin.NewRegistry(p)

	var wg sync.WaitGroup
	sem := make(chan struct{}, 2)
	var calls int
	var mu sync.Mutex
	var got record.Map

	reg.ProcessFileAsync(context.Background(), afero.NewMemMapFs(), "/a.txt", sem, &wg, func(res record.Map, err error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		got = res
		assert.NoError(t, err)
	})
	wg.Wait()

	assert.Equal(t, 1, calls, "callback must be invoked exactly once")
	assert.Equal(t, "async", got["owner"].Str)
}

func TestProcessFileAsyncReportsCancellationOnce(t *testing.T) {
	p := fakePlugin{GlobPlugin: plugin.GlobPlugin{Pattern: "*"}, priority: 1}
	reg := plugin.NewRegistry(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A full semaphore means ProcessFileAsync must observe ctx.Done()
	// instead of blocking forever on the acquire.
	sem := make(chan struct{}, 1)
	sem <- struct{}{}

	var wg sync.WaitGroup
	var calls int
	var mu sync.Mutex

	reg.ProcessFileAsync(ctx, afero.NewMemMapFs(), "/a.txt", sem, &wg, func(res record.Map, err error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)
	})
	wg.Wait()

	assert.Equal(t, 1, calls, "callback must be invoked exactly once even on cancellation")
}
