// Package correlation matches asynchronous operations with their outcomes.
//
// Every operation issued by the pool manager is registered in a Table, which
// hands out a Token. Whatever goroutine finishes the operation later calls
// Complete with that token, and the continuation registered with it runs
// exactly once. A token that is unknown, or that was already completed, is a
// protocol violation reported as an UnknownCorrelationError; it never reaches
// a continuation.
//
// At shutdown, CancelAll resolves every pending operation with ErrCancelled so
// that no caller is left waiting.
package correlation
