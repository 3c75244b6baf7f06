package engine

import (
	"context"
	"testing"

	"betexec/internal/domain"
)

type nopExecution struct{}

func (nopExecution) ExecutePlace(context.Context, *domain.OrderPackage)   {}
func (nopExecution) ExecuteCancel(context.Context, *domain.OrderPackage)  {}
func (nopExecution) ExecuteUpdate(context.Context, *domain.OrderPackage)  {}
func (nopExecution) ExecuteReplace(context.Context, *domain.OrderPackage) {}

// BenchmarkSequencer_Execute measures the dispatch overhead per package.
func BenchmarkSequencer_Execute(b *testing.B) {
	seq := NewSequencer(domain.ExchangeBetfair, nopExecution{}, 1, nil, "")
	p := pkg(domain.OrderPackagePlace, domain.ExchangeBetfair)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		seq.execute(ctx, p)
	}
}

// BenchmarkSequencer_FullPipeline measures end-to-end package processing.
// Note: This benchmark includes channel overhead.
func BenchmarkSequencer_FullPipeline(b *testing.B) {
	exec := &countingExecution{done: make(chan struct{})}
	exec.target = b.N
	seq := NewSequencer(domain.ExchangeBetfair, exec, b.N+100, nil, "")
	p := pkg(domain.OrderPackagePlace, domain.ExchangeBetfair)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go seq.Run(ctx)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := seq.Submit(p); err != nil {
			b.Fatal(err)
		}
	}
	<-exec.done
}

type countingExecution struct {
	nopExecution
	n, target int
	done      chan struct{}
}

func (e *countingExecution) ExecutePlace(context.Context, *domain.OrderPackage) {
	e.n++
	if e.n == e.target {
		close(e.done)
	}
}
