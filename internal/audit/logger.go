// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/doipub/internal/logging"
)

// DefaultBufferSize is the async write buffer used by NewLogger.
const DefaultBufferSize = 1000

// Recorder accepts audit events. The workflow depends on this rather than
// on *Logger so tests can capture events synchronously.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Logger writes events to a Store from a background goroutine.
type Logger struct {
	store     Store
	eventChan chan *Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewLogger starts the async writer. bufferSize <= 0 uses DefaultBufferSize.
func NewLogger(store Store, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	l := &Logger{
		store:     store,
		eventChan: make(chan *Event, bufferSize),
		stopChan:  make(chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
	}
}

// Record fills ID, timestamp and request identifiers and queues the event.
// A full buffer drops the event with a warning.
func (l *Logger) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if event.Actor == "" {
		event.Actor = SystemActor
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	if event.CorrelationID == "" {
		event.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}

	select {
	case <-l.stopChan:
		logging.Warn().Str("event_id", event.ID).Msg("Audit logger closed, dropping event")
		return
	default:
	}

	select {
	case l.eventChan <- &event:
	default:
		logging.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).
			Msg("Audit event buffer full, dropping event")
	}
}

// Close drains queued events and closes the store.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return l.store.Close()
}

// Prune deletes events older than retention and logs how many went.
func (l *Logger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	count, err := l.store.Delete(ctx, l.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logging.Info().Int64("count", count).Dur("retention", retention).Msg("Cleaned up old audit events")
	}
	return count, nil
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// Nop discards events.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) {}
