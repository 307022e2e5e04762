package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kapital-dev/kapital/internal/model"
)

// Writer is the destination of a Saver.
type Writer interface {
	Save(ctx context.Context, accounts []model.Account) error
}

// RetryConfig bounds how hard a Saver tries to write one snapshot.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetry is used for zero fields of a RetryConfig.
var DefaultRetry = RetryConfig{
	MaxAttempts:    5,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// Saver writes snapshots on a single background goroutine.
//
// Schedule never blocks. Only the latest unwritten snapshot is kept, so a
// burst of mutations costs one write and the last scheduled snapshot is
// always the last one written.
type Saver struct {
	w     Writer
	retry RetryConfig
	log   zerolog.Logger

	mu        sync.Mutex
	pending   []model.Account
	scheduled uint64 // snapshots handed to Schedule
	settled   uint64 // highest scheduled number written, dropped or superseded
	lastErr   error  // why the most recently settled snapshot was dropped
	changed   chan struct{}

	wake chan struct{}
}

// NewSaver returns a Saver writing to w. Call Run to start it.
func NewSaver(w Writer, retry RetryConfig, log zerolog.Logger) *Saver {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultRetry.MaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = DefaultRetry.InitialBackoff
	}
	if retry.MaxBackoff < retry.InitialBackoff {
		retry.MaxBackoff = max(DefaultRetry.MaxBackoff, retry.InitialBackoff)
	}
	return &Saver{
		w:       w,
		retry:   retry,
		log:     log,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Schedule queues accounts for writing, replacing any snapshot not yet
// picked up by the worker.
func (s *Saver) Schedule(accounts []model.Account) {
	s.mu.Lock()
	s.pending = accounts
	s.scheduled++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Idle reports whether every scheduled snapshot has settled.
func (s *Saver) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled == s.scheduled
}

// Saved reports whether every scheduled snapshot has settled and the most
// recent one reached storage. It is false after a snapshot was dropped, until
// a later one is written.
func (s *Saver) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled == s.scheduled && s.lastErr == nil
}

// Flush waits until everything scheduled before the call has been written,
// dropped after its last attempt, or superseded by a newer snapshot.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	target := s.scheduled
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.settled >= target {
			s.mu.Unlock()
			return nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run writes scheduled snapshots until ctx is done. Snapshots still pending
// at that point are not written; Flush before cancelling.
func (s *Saver) Run(ctx context.Context) error {
	s.log.Debug().Msg("saver started")
	defer s.log.Debug().Msg("saver stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}

		s.mu.Lock()
		accounts, seq := s.pending, s.scheduled
		s.pending = nil
		fresh := seq > s.settled
		s.mu.Unlock()

		if !fresh {
			continue
		}
		err := s.write(ctx, accounts, seq)
		s.settle(seq, err)
	}
}

// Err returns the error that made the most recently settled snapshot get
// dropped, or nil if it was written or superseded.
func (s *Saver) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Saver) settle(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.settled {
		s.settled = seq
		s.lastErr = err
	}
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Saver) newer(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled > seq
}

// write returns the last error when the snapshot is dropped, and nil when
// it was written or superseded by a newer one.
func (s *Saver) write(ctx context.Context, accounts []model.Account, seq uint64) error {
	backoff := s.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := s.w.Save(ctx, accounts)
		if err == nil {
			s.log.Debug().Uint64("seq", seq).Int("attempt", attempt).Msg("snapshot saved")
			return nil
		}

		switch {
		case ctx.Err() != nil:
			s.log.Warn().Err(err).Uint64("seq", seq).Msg("saver stopping, snapshot not saved")
			return err
		case attempt >= s.retry.MaxAttempts:
			s.log.Error().Err(err).Uint64("seq", seq).Int("attempts", attempt).Msg("giving up, snapshot lost")
			return err
		case s.newer(seq):
			s.log.Info().Err(err).Uint64("seq", seq).Msg("save failed, superseded by newer snapshot")
			return nil
		}

		s.log.Warn().Err(err).Uint64("seq", seq).Int("attempt", attempt).Dur("backoff", backoff).Msg("save failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.log.Warn().Uint64("seq", seq).Msg("saver stopping, snapshot not saved")
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
			// Hand the wake-up back to Run, which picks up the newer snapshot.
			select {
			case s.wake <- struct{}{}:
			default:
			}
			s.log.Info().Uint64("seq", seq).Msg("retry abandoned, superseded by newer snapshot")
			return nil
		}

		backoff *= 2
		if backoff > s.retry.MaxBackoff {
			backoff = s.retry.MaxBackoff
		}
	}
}
