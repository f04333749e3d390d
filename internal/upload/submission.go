package upload

import (
	"context"
	"sync"

	"contrato-firma/internal/domain/entity"
)

// maxEvents bounds the event stream of one submission:
// in_progress(0), at most 100 strictly increasing progress values, one terminal event.
const maxEvents = 102

// Submission is the handle of one running upload. It records every event so
// each call to Events gets the complete stream, and Status can be polled at any time.
type Submission struct {
	mu       sync.Mutex
	outcome  entity.UploadOutcome
	history  []entity.UploadEvent
	watchers []chan entity.UploadEvent
	done     chan struct{}
}

func newSubmission() *Submission {
	return &Submission{
		outcome: entity.IdleOutcome(),
		done:    make(chan struct{}),
	}
}

// Events returns a channel that replays the events emitted so far and then
// follows the submission until its terminal event, after which it is closed.
func (s *Submission) Events() <-chan entity.UploadEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan entity.UploadEvent, maxEvents)
	for _, ev := range s.history {
		ch <- ev
	}
	if s.outcome.IsTerminal() {
		close(ch)
	} else {
		s.watchers = append(s.watchers, ch)
	}
	return ch
}

// Status returns the current outcome
func (s *Submission) Status() entity.UploadOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Done is closed once the submission reached its terminal outcome
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the terminal outcome or until ctx is done
func (s *Submission) Wait(ctx context.Context) (entity.UploadOutcome, error) {
	select {
	case <-s.done:
		return s.Status(), nil
	case <-ctx.Done():
		return s.Status(), ctx.Err()
	}
}

// progress moves the outcome to in_progress(percent). Values that do not
// increase and values arriving after the terminal event are dropped.
func (s *Submission) progress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome.IsTerminal() {
		return
	}
	if s.outcome.State == entity.UploadInProgress && percent <= s.outcome.Progress {
		return
	}
	s.emit(entity.InProgressOutcome(percent))
}

// finish records the terminal outcome; only the first call has an effect
func (s *Submission) finish(outcome entity.UploadOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome.IsTerminal() {
		return
	}
	s.emit(outcome)

	for _, w := range s.watchers {
		close(w)
	}
	s.watchers = nil
	close(s.done)
}

// emit must be called with s.mu held. Watcher channels have room for
// maxEvents, so the sends never block.
func (s *Submission) emit(outcome entity.UploadOutcome) {
	s.outcome = outcome
	ev := entity.UploadEvent{Outcome: outcome}
	s.history = append(s.history, ev)
	for _, w := range s.watchers {
		w <- ev
	}
}
