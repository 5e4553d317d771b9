package ctxsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MutexTestSuite struct {
	suite.Suite
	mu *Mutex
}

func (s *MutexTestSuite) SetupTest() {
	s.mu = NewMutex()
}

// Many goroutines incrementing under the lock never lose an update.
func (s *MutexTestSuite) TestExclusion() {
	const workers = 500
	n := 0
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			n++
		}()
	}
	wg.Wait()
	s.Equal(workers, n)
}

func (s *MutexTestSuite) TestTryLock() {
	s.True(s.mu.TryLock())
	s.False(s.mu.TryLock())
	s.mu.Unlock()
	s.True(s.mu.TryLock())
	s.mu.Unlock()
}

func (s *MutexTestSuite) TestUnlockOfUnlocked() {
	s.Panics(func() { s.mu.Unlock() })
}

func (s *MutexTestSuite) TestCanceledWhileWaiting() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.mu.LockWithContext(ctx), context.DeadlineExceeded)
}

func (s *MutexTestSuite) TestDoneContextOnFreeMutex() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(s.mu.LockWithContext(ctx), context.Canceled)
	s.True(s.mu.TryLock())
	s.mu.Unlock()
}

func (s *MutexTestSuite) TestDo() {
	errFn := errors.New("fn failed")
	ctx := context.Background()

	s.ErrorIs(s.mu.Do(ctx, func() error {
		s.False(s.mu.TryLock())
		return errFn
	}), errFn)

	s.Panics(func() {
		_ = s.mu.Do(ctx, func() error { panic("boom") })
	})

	// released after both the error and the panic
	s.True(s.mu.TryLock())
	s.mu.Unlock()
}

func (s *MutexTestSuite) TestDoCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.mu.Do(ctx, func() error {
		called = true
		return nil
	})
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}

func TestMutexTestSuite(t *testing.T) {
	suite.Run(t, new(MutexTestSuite))
}
