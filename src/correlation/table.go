package correlation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Table maps tokens to pending operations. It is safe for concurrent use.
type Table struct {
	sync.Mutex

	pending map[Token]*PendingOperation
	next    Token

	logger *logrus.Entry
}

// NewTable creates an empty Table.
func NewTable(logger *logrus.Entry) *Table {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Table{
		pending: make(map[Token]*PendingOperation),
		logger:  logger.WithField("component", "correlation"),
	}
}

// Register stores a new pending operation and returns its token. The
// continuation is invoked exactly once, by Complete or CancelAll.
func (t *Table) Register(kind Kind, cont Continuation) Token {
	t.Lock()
	defer t.Unlock()

	token := t.nextToken()

	t.pending[token] = &PendingOperation{
		Token:        token,
		Kind:         kind,
		Created:      time.Now(),
		continuation: cont,
	}

	t.logger.WithFields(logrus.Fields{
		"token": token,
		"kind":  kind,
	}).Debug("Register")

	return token
}

// nextToken skips zero and any value still pending after a wrap-around. It
// must be called with the lock held.
func (t *Table) nextToken() Token {
	for {
		t.next++
		if t.next == 0 {
			continue
		}
		if _, ok := t.pending[t.next]; !ok {
			return t.next
		}
	}
}

// Complete removes the pending operation identified by token and delivers the
// outcome to its continuation. The continuation runs outside the table lock.
func (t *Table) Complete(token Token, outcome Outcome) error {
	t.Lock()
	op, ok := t.pending[token]
	if ok {
		delete(t.pending, token)
	}
	t.Unlock()

	if !ok {
		err := &UnknownCorrelationError{Token: token}
		t.logger.WithError(err).Error("Complete")
		return err
	}

	t.logger.WithFields(logrus.Fields{
		"token":    token,
		"kind":     op.Kind,
		"duration": time.Since(op.Created),
		"error":    outcome.Err,
	}).Debug("Complete")

	if op.continuation != nil {
		op.continuation(outcome)
	}

	return nil
}

// CancelAll completes every pending operation with an error wrapping
// ErrCancelled and returns the number of operations cancelled.
func (t *Table) CancelAll(reason string) int {
	t.Lock()
	ops := t.pending
	t.pending = make(map[Token]*PendingOperation)
	t.Unlock()

	err := fmt.Errorf("%w: %s", ErrCancelled, reason)

	for _, op := range sortedOps(ops) {
		if op.continuation != nil {
			op.continuation(Outcome{Err: err})
		}
	}

	if len(ops) > 0 {
		t.logger.WithFields(logrus.Fields{
			"count":  len(ops),
			"reason": reason,
		}).Warn("CancelAll")
	}

	return len(ops)
}

// Len returns the number of pending operations.
func (t *Table) Len() int {
	t.Lock()
	defer t.Unlock()
	return len(t.pending)
}

// Pending returns a copy of the pending operations, ordered by token.
func (t *Table) Pending() []PendingOperation {
	t.Lock()
	defer t.Unlock()

	res := make([]PendingOperation, 0, len(t.pending))
	for _, op := range sortedOps(t.pending) {
		res = append(res, PendingOperation{
			Token:   op.Token,
			Kind:    op.Kind,
			Created: op.Created,
		})
	}
	return res
}

// PendingByKind counts pending operations per kind.
func (t *Table) PendingByKind() map[string]int {
	t.Lock()
	defer t.Unlock()

	res := make(map[string]int)
	for _, op := range t.pending {
		res[op.Kind.String()]++
	}
	return res
}

func sortedOps(m map[Token]*PendingOperation) []*PendingOperation {
	ops := make([]*PendingOperation, 0, len(m))
	for _, op := range m {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Token < ops[j].Token })
	return ops
}
