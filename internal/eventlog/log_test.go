package eventlog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Index int
	Label string
}

func TestLog_Empty(t *testing.T) {
	l := New[entry]()

	entries := l.Entries()
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Equal(t, 0, l.Len())

	_, ok := l.Latest()
	assert.False(t, ok)
}

func TestLog_AppendPrepends(t *testing.T) {
	l := New[entry]()
	e1 := entry{Index: 1, Label: "first"}
	e2 := entry{Index: 2, Label: "second"}

	l.Append(e1)
	l.Append(e2)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, e2, entries[0])
	assert.Equal(t, e1, entries[1])

	latest, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, e2, latest)
}

func TestLog_EntriesIsSnapshot(t *testing.T) {
	l := New[entry]()
	l.Append(entry{Index: 1})

	snap := l.Entries()
	snap[0].Label = "mutated"
	l.Append(entry{Index: 2})

	assert.Len(t, snap, 1, "earlier snapshot must not grow")
	assert.Equal(t, "", l.Entries()[1].Label, "log must not see snapshot mutation")
}

func TestLog_ManyEntriesOrder(t *testing.T) {
	l := New[entry]()
	for i := 1; i <= 100; i++ {
		l.Append(entry{Index: i})
	}

	entries := l.Entries()
	require.Len(t, entries, 100)
	for i, e := range entries {
		assert.Equal(t, 100-i, e.Index)
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := New[entry]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Append(entry{Index: n*10 + j})
				_ = l.Entries()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, l.Len())
}
