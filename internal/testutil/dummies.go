// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dberest/veridict/internal/enrich"
	"github.com/dberest/veridict/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// Has reports whether msg was recorded at any level. Safe to call while the
// component under test is still logging.
func (l *DummyLogger) Has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, recorded := range [][]string{l.Errors, l.Infos, l.Debugs, l.Warns} {
		for _, m := range recorded {
			if m == msg {
				return true
			}
		}
	}
	return false
}

// ─── Analyzer ──────────────────────────────────────────────────────────

// DummyAnalyzer implements enrich.Analyzer with canned responses.
// By default it returns an available analysis echoing the input label.
// Set Fail to force an error, Delay to simulate slow upstream calls.
type DummyAnalyzer struct {
	Fail        bool
	Unavailable bool
	Delay       time.Duration

	mu    sync.Mutex
	Calls []string
}

func (a *DummyAnalyzer) Analyze(ctx context.Context, text, label string, confidence float64) (*enrich.Analysis, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	a.mu.Lock()
	a.Calls = append(a.Calls, text)
	a.mu.Unlock()

	if a.Fail {
		return nil, errors.New("dummy analyzer failure")
	}
	return &enrich.Analysis{
		Available:      true,
		Verdict:        label,
		Recommendation: "verify with additional sources",
	}, nil
}

func (a *DummyAnalyzer) Available() bool { return !a.Unavailable }

// CallCount returns how many Analyze calls completed.
func (a *DummyAnalyzer) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Calls)
}
