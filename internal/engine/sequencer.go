package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"betexec/internal/domain"
	"betexec/internal/infra"
)

// Sequencer is the single worker of one exchange. Packages are executed in
// submission order and never overlap, so one account never has two venue
// calls in flight.
type Sequencer struct {
	exchange domain.ExchangeType
	exec     domain.Execution
	inbox    chan *domain.OrderPackage
	log      *slog.Logger
	dumpPath string

	mu        sync.RWMutex // guards the counters for external reads
	nextSeq   uint64
	lastID    string
	lastType  domain.OrderPackageType
	lastAt    time.Time
	panics    uint64
	submitted uint64
}

// NewSequencer creates a sequencer for one exchange. dumpPath receives the
// worker state when a package panics; empty disables the dump.
func NewSequencer(exchange domain.ExchangeType, exec domain.Execution, inboxSize int, log *slog.Logger, dumpPath string) *Sequencer {
	if log == nil {
		log = slog.Default()
	}
	return &Sequencer{
		exchange: exchange,
		exec:     exec,
		inbox:    make(chan *domain.OrderPackage, inboxSize),
		log:      log.With(slog.String("exchange", string(exchange))),
		dumpPath: dumpPath,
		nextSeq:  1,
	}
}

func (s *Sequencer) Exchange() domain.ExchangeType { return s.exchange }

// Submit queues a package without blocking. It returns ErrQueueFull when
// the worker is saturated.
func (s *Sequencer) Submit(pkg *domain.OrderPackage) error {
	select {
	case s.inbox <- pkg:
		s.mu.Lock()
		s.submitted++
		s.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("%s: %w", s.exchange, domain.ErrQueueFull)
	}
}

// Pending returns the number of queued packages.
func (s *Sequencer) Pending() int {
	return len(s.inbox)
}

// Run executes packages until ctx is done. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	s.log.Info("Sequencer started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sequencer stopping...", slog.Int("pending", len(s.inbox)))
			return
		case pkg := <-s.inbox:
			s.execute(ctx, pkg)
		}
	}
}

// execute runs one package. A panic is contained to its package so the
// exchange keeps processing; affected orders are left to reconciliation.
func (s *Sequencer) execute(ctx context.Context, pkg *domain.OrderPackage) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.panics++
			s.mu.Unlock()
			s.log.Log(ctx, infra.LevelCritical, "Package execution panicked",
				slog.Any("package", pkg), slog.Any("panic", r))
			if s.dumpPath != "" {
				s.DumpState(s.dumpPath)
			}
		}
	}()

	s.mu.Lock()
	s.nextSeq++
	s.lastID = pkg.ID()
	s.lastType = pkg.Type()
	s.lastAt = time.Now()
	s.mu.Unlock()

	switch pkg.Type() {
	case domain.OrderPackagePlace:
		s.exec.ExecutePlace(ctx, pkg)
	case domain.OrderPackageCancel:
		s.exec.ExecuteCancel(ctx, pkg)
	case domain.OrderPackageUpdate:
		s.exec.ExecuteUpdate(ctx, pkg)
	case domain.OrderPackageReplace:
		s.exec.ExecuteReplace(ctx, pkg)
	default:
		s.log.Warn("Unknown package type", slog.String("type", string(pkg.Type())))
	}
}

// Processed returns the number of packages taken from the inbox.
func (s *Sequencer) Processed() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSeq - 1
}

// DumpState writes the worker state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping sequencer state...", slog.String("file", filename))

	s.mu.RLock()
	data := struct {
		Exchange    domain.ExchangeType     `json:"exchange"`
		Processed   uint64                  `json:"processed"`
		Submitted   uint64                  `json:"submitted"`
		Pending     int                     `json:"pending"`
		Panics      uint64                  `json:"panics"`
		LastPackage string                  `json:"last_package"`
		LastType    domain.OrderPackageType `json:"last_type"`
		LastAt      time.Time               `json:"last_at"`
	}{
		Exchange:    s.exchange,
		Processed:   s.nextSeq - 1,
		Submitted:   s.submitted,
		Pending:     len(s.inbox),
		Panics:      s.panics,
		LastPackage: s.lastID,
		LastType:    s.lastType,
		LastAt:      s.lastAt,
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
