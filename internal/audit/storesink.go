package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"predictd/internal/persist"
)

// StoreSink writes records to the audit_log table from a background
// goroutine so lifecycle paths never block on the database. The buffer
// drops under pressure rather than stall the caller.
type StoreSink struct {
	store *persist.Store
	log   zerolog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Record
	done   chan struct{}
}

func NewStoreSink(store *persist.Store, log zerolog.Logger) *StoreSink {
	s := &StoreSink{
		store: store,
		log:   log,
		ch:    make(chan Record, 256),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *StoreSink) Record(r Record) {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.log.Warn().Str("org_id", r.OrgID).Str("action", r.Action).Msg("audit buffer full, dropping record")
	}
}

func (s *StoreSink) run() {
	defer close(s.done)
	for r := range s.ch {
		row := persist.AuditRow{
			ID:             uuid.NewString(),
			OrgID:          r.OrgID,
			Action:         r.Action,
			Outcome:        r.Outcome,
			Detail:         r.Detail,
			RequestingUser: r.RequestingUser,
			DurationMillis: r.Duration.Milliseconds(),
			CreatedAt:      r.At,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.InsertAudit(ctx, row); err != nil {
			s.log.Warn().Err(err).Str("org_id", r.OrgID).Str("action", r.Action).Msg("audit write failed")
		}
		cancel()
	}
}

// Close flushes buffered records and stops the writer. Records arriving
// after Close are dropped.
func (s *StoreSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.ch)
	<-s.done
}
