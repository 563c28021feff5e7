package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelForRunsEveryIndex(t *testing.T) {
	const n = 200
	var seen [n]int32

	ParallelFor(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, v := range seen {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestParallelForZero(t *testing.T) {
	called := false
	ParallelFor(0, func(i int) { called = true })
	assert.False(t, called)
}
