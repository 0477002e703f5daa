package correlation

import (
	"errors"
	"sync"
	"testing"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/sirupsen/logrus"
)

func newTestTable(t *testing.T) *Table {
	return NewTable(common.NewTestEntry(t, logrus.DebugLevel))
}

func TestRegisterComplete(t *testing.T) {
	table := newTestTable(t)

	var got []Outcome
	token := table.Register(Open, func(o Outcome) { got = append(got, o) })

	if token == 0 {
		t.Fatalf("token zero should never be issued")
	}
	if table.Len() != 1 {
		t.Fatalf("Len should be 1, not %d", table.Len())
	}

	if err := table.Complete(token, Outcome{Result: 42}); err != nil {
		t.Fatalf("err: %v", err)
	}

	if len(got) != 1 || got[0].Result != 42 {
		t.Fatalf("continuation should have received 42 once, got %v", got)
	}
	if table.Len() != 0 {
		t.Fatalf("Len should be 0, not %d", table.Len())
	}
}

func TestDoubleCompleteRejected(t *testing.T) {
	table := newTestTable(t)

	calls := 0
	token := table.Register(Close, func(o Outcome) { calls++ })

	if err := table.Complete(token, Outcome{}); err != nil {
		t.Fatalf("err: %v", err)
	}

	err := table.Complete(token, Outcome{Err: errors.New("second")})
	if !IsUnknownCorrelation(err) {
		t.Fatalf("second Complete should fail with UnknownCorrelationError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("continuation should run once, ran %d times", calls)
	}

	if err := table.Complete(Token(9999), Outcome{}); !IsUnknownCorrelation(err) {
		t.Fatalf("never issued token should be rejected, got %v", err)
	}
}

func TestTokensUnique(t *testing.T) {
	table := newTestTable(t)

	seen := make(map[Token]bool)
	for i := 0; i < 1000; i++ {
		token := table.Register(CreateConfig, nil)
		if seen[token] {
			t.Fatalf("token %s issued twice", token)
		}
		seen[token] = true
	}
}

func TestTokenWrapAroundSkipsPending(t *testing.T) {
	table := newTestTable(t)

	first := table.Register(Open, nil)

	table.Lock()
	table.next = ^Token(0) - 1
	table.Unlock()

	a := table.Register(Open, nil)
	b := table.Register(Open, nil)

	if a != ^Token(0) {
		t.Fatalf("expected max token, got %s", a)
	}
	if b == 0 || b == first {
		t.Fatalf("wrap-around should skip zero and pending tokens, got %s", b)
	}
}

func TestCancelAll(t *testing.T) {
	table := newTestTable(t)

	futures := []*Future{}
	for _, k := range Kinds {
		futures = append(futures, table.RegisterFuture(k))
	}

	n := table.CancelAll("shutdown")
	if n != len(Kinds) {
		t.Fatalf("CancelAll should cancel %d operations, not %d", len(Kinds), n)
	}

	for _, f := range futures {
		o := f.Wait()
		if !IsCancelled(o.Err) {
			t.Fatalf("future %s should be cancelled, got %v", f.Token(), o.Err)
		}
		if err := table.Complete(f.Token(), Outcome{}); !IsUnknownCorrelation(err) {
			t.Fatalf("cancelled token should no longer be pending")
		}
	}

	if table.CancelAll("again") != 0 {
		t.Fatalf("second CancelAll should find nothing")
	}
}

func TestFutureWaitTwice(t *testing.T) {
	table := newTestTable(t)

	f := table.RegisterFuture(Refresh)
	go table.Complete(f.Token(), Outcome{Result: "ok"})

	if o := f.Wait(); o.Result != "ok" {
		t.Fatalf("unexpected outcome %v", o)
	}
	if o := f.Wait(); o.Result != "ok" {
		t.Fatalf("second Wait should return the same outcome, got %v", o)
	}
}

func TestConcurrentComplete(t *testing.T) {
	table := newTestTable(t)

	const ops = 100
	const racers = 4

	var mu sync.Mutex
	delivered := make(map[Token]int)

	tokens := make([]Token, ops)
	for i := range tokens {
		tokens[i] = table.Register(Open, nil)
		tok := tokens[i]
		table.pending[tok].continuation = func(Outcome) {
			mu.Lock()
			delivered[tok]++
			mu.Unlock()
		}
	}

	var wg sync.WaitGroup
	var failMu sync.Mutex
	failures := 0
	for r := 0; r < racers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, tok := range tokens {
				if err := table.Complete(tok, Outcome{}); err != nil {
					failMu.Lock()
					failures++
					failMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if failures != ops*(racers-1) {
		t.Fatalf("expected %d rejected completions, got %d", ops*(racers-1), failures)
	}
	for _, tok := range tokens {
		if delivered[tok] != 1 {
			t.Fatalf("token %s delivered %d times", tok, delivered[tok])
		}
	}
}

func TestPendingSnapshot(t *testing.T) {
	table := newTestTable(t)

	table.Register(Open, nil)
	table.Register(Refresh, nil)
	table.Register(Open, nil)

	pending := table.Pending()
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending operations, got %d", len(pending))
	}
	for i := 1; i < len(pending); i++ {
		if pending[i-1].Token >= pending[i].Token {
			t.Fatalf("pending operations should be ordered by token")
		}
	}

	byKind := table.PendingByKind()
	if byKind["Open"] != 2 || byKind["Refresh"] != 1 {
		t.Fatalf("unexpected counts %v", byKind)
	}
}
