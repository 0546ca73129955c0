package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceTokenGenerator(t *testing.T) {
	gen := NewSequenceTokenGenerator("")

	assert.Equal(t, "token-1", gen.Generate())
	assert.Equal(t, "token-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Issued())

	gen.Reset()
	assert.Equal(t, "token-1", gen.Generate())
}

func TestSequenceTokenGenerator_Prefix(t *testing.T) {
	gen := NewSequenceTokenGenerator("tmp")
	assert.Equal(t, "tmp-1", gen.Generate())
}

func TestSequenceTokenGenerator_ConcurrentUnique(t *testing.T) {
	gen := NewSequenceTokenGenerator("t")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tok := gen.Generate()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every token must be unique")
}

func TestDeterministicClock(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_SameSequenceAcrossRuns(t *testing.T) {
	run := func() []int64 {
		clock := NewDeterministicClock()
		return []int64{clock.Next(), clock.Next(), clock.Next()}
	}
	assert.Equal(t, run(), run())
}
