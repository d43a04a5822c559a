package replica

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocker_TryLock_ExclusiveAcrossJobs(t *testing.T) {
	l := NewLocker()
	chunk := Chunk{Family: "LSST", Number: 7}
	job1, job2 := NewJobId(), NewJobId()

	assert.True(t, l.TryLock(chunk, job1))
	assert.False(t, l.TryLock(chunk, job2))
	assert.Equal(t, 1, l.FailedLocks())

	owner, ok := l.OwnerOf(chunk)
	assert.True(t, ok)
	assert.Equal(t, job1, owner)
}

func TestLocker_TryLock_ReentrantForSameJob(t *testing.T) {
	l := NewLocker()
	chunk := Chunk{Family: "LSST", Number: 7}
	job := NewJobId()

	assert.True(t, l.TryLock(chunk, job))
	assert.True(t, l.TryLock(chunk, job))
}

func TestLocker_Release(t *testing.T) {
	l := NewLocker()
	chunk := Chunk{Family: "LSST", Number: 7}
	job1, job2 := NewJobId(), NewJobId()

	require := assert.New(t)
	require.True(l.TryLock(chunk, job1))
	l.Release(chunk)
	require.True(l.TryLock(chunk, job2))
}

func TestLocker_ReleaseAll(t *testing.T) {
	l := NewLocker()
	job := NewJobId()
	c1 := Chunk{Family: "LSST", Number: 1}
	c2 := Chunk{Family: "LSST", Number: 2}

	assert.True(t, l.TryLock(c1, job))
	assert.True(t, l.TryLock(c2, job))
	assert.Len(t, l.LockedBy(job), 2)

	l.ReleaseAll(job)
	assert.Empty(t, l.LockedBy(job))

	other := NewJobId()
	assert.True(t, l.TryLock(c1, other))
	assert.True(t, l.TryLock(c2, other))
}

func TestLocker_ConcurrentExclusivity(t *testing.T) {
	l := NewLocker()
	chunk := Chunk{Family: "LSST", Number: 42}

	const n = 50
	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i] = l.TryLock(chunk, JobId(NewJobId()))
		}(i)
	}
	wg.Wait()

	count := 0
	for _, w := range wins {
		if w {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one concurrent planner should win the lock")
}
