package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolSerializationSameName(t *testing.T) {
	var inFlight, maxInFlight int32
	terminal := func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxInFlight)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return tool.NewMessageResult(req.CallID, "done"), nil
	}

	mw := ToolSerialization()
	chain := Compose([]ToolMiddleware{mw.WrapTool}, terminal)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := chain(context.Background(), &tool.Request{CallID: core.NewID(), Name: "write_file"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "same-name calls must never overlap")
}

func TestToolSerializationDifferentNamesOverlap(t *testing.T) {
	entered := make(chan string, 2)
	release := make(chan struct{})
	terminal := func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
		entered <- req.Name
		select {
		case <-release:
		case <-time.After(2 * time.Second):
			t.Error("tool call blocked; different names should run concurrently")
		}
		return tool.NewMessageResult(req.CallID, "done"), nil
	}

	mw := ToolSerialization()
	chain := Compose([]ToolMiddleware{mw.WrapTool}, terminal)

	var wg sync.WaitGroup
	for _, name := range []string{"write_file", "search"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			_, err := chain(context.Background(), &tool.Request{CallID: core.NewID(), Name: n})
			assert.NoError(t, err)
		}(name)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-entered:
			seen[n] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for both tools to enter")
		}
	}
	close(release)
	wg.Wait()

	assert.True(t, seen["write_file"] && seen["search"])
}

func TestToolSerializationOnlyListedNames(t *testing.T) {
	mw := ToolSerialization("write_file")

	var concurrent int32
	terminal := func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
		atomic.AddInt32(&concurrent, 1)
		defer atomic.AddInt32(&concurrent, -1)
		time.Sleep(5 * time.Millisecond)
		return tool.NewMessageResult(req.CallID, "done"), nil
	}
	chain := Compose([]ToolMiddleware{mw.WrapTool}, terminal)

	// Unlisted tools bypass the lock table entirely.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := chain(context.Background(), &tool.Request{CallID: core.NewID(), Name: "search"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestLockTableLazyCreateAndReuse(t *testing.T) {
	table := NewLockTable()

	mu1 := table.Get("write_file")
	mu2 := table.Get("write_file")
	require.Same(t, mu1, mu2, "same key reuses the lock")

	mu3 := table.Get("search")
	require.NotSame(t, mu1, mu3)
	assert.Equal(t, 2, table.Len())
}

func TestLockTableConcurrentLookupOrCreate(t *testing.T) {
	table := NewLockTable()

	var wg sync.WaitGroup
	locks := make([]*sync.Mutex, 16)
	for i := range locks {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			locks[idx] = table.Get("shared")
		}(i)
	}
	wg.Wait()

	for _, mu := range locks[1:] {
		require.Same(t, locks[0], mu, "check-then-act must be atomic")
	}
	assert.Equal(t, 1, table.Len())
}
