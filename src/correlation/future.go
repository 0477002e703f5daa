package correlation

// Future is a pending operation whose outcome is delivered on a channel.
type Future struct {
	token  Token
	kind   Kind
	respCh chan Outcome
	result *Outcome
}

// RegisterFuture registers an operation whose continuation resolves the
// returned Future.
func (t *Table) RegisterFuture(kind Kind) *Future {
	f := &Future{
		kind:   kind,
		respCh: make(chan Outcome, 1),
	}
	f.token = t.Register(kind, f.respond)
	return f
}

func (f *Future) respond(o Outcome) {
	f.respCh <- o
}

// Token returns the token the Future was registered under.
func (f *Future) Token() Token {
	return f.token
}

// Kind ...
func (f *Future) Kind() Kind {
	return f.kind
}

// Done returns a channel that receives the outcome once. Callers that use Done
// directly must not also call Wait.
func (f *Future) Done() <-chan Outcome {
	return f.respCh
}

// Wait blocks until the outcome is available and returns it. It can be called
// repeatedly from the goroutine that owns the Future.
func (f *Future) Wait() Outcome {
	if f.result == nil {
		o := <-f.respCh
		f.result = &o
	}
	return *f.result
}
