package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrSolverUnavailable is returned by Query when no solver binary can be
// resolved. Facts and rules can still be added without a solver present.
var ErrSolverUnavailable = errors.New("logic solver unavailable")

// File header written at the top of every persisted knowledge base.
const (
	headerLine1 = "% knowledge base"
	headerLine2 = "% one statement per line; lines starting with % are comments"
)

// Manager owns the ordered, deduplicated statement collection for one
// world, backed by a text file. Mutations never raise: callers check the
// boolean return and the Manager logs the reason. The mutex makes sharing
// one Manager within a process safe; the file itself has no cross-process
// locking, so at most one writer per world is assumed.
type Manager struct {
	mu         sync.Mutex
	path       string
	executor   *Executor
	logger     *slog.Logger
	statements []Statement
	index      map[string]struct{}
}

// NewManager builds a Manager over the given file path. Call Load to pick
// up a previously persisted collection.
func NewManager(path string, executor *Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		path:     path,
		executor: executor,
		logger:   logger,
		index:    make(map[string]struct{}),
	}
}

// Path returns the backing file location.
func (m *Manager) Path() string {
	return m.path
}

// Len returns the number of stored statements.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.statements)
}

// AddFact normalizes, validates and stores one fact, persisting the
// collection on success. Returns false for invalid or duplicate input.
func (m *Manager) AddFact(text string) bool {
	return m.add(text, KindFact)
}

// AddRule normalizes, validates and stores one rule, persisting the
// collection on success. Returns false for invalid or duplicate input.
func (m *Manager) AddRule(text string) bool {
	return m.add(text, KindRule)
}

// AssertFact stores a structured clause as a fact, serialized through the
// single clause formatter.
func (m *Manager) AssertFact(c Clause) bool {
	return m.AddFact(FactText(c))
}

// AssertRule stores a structured head/body rule, serialized through the
// single clause formatter.
func (m *Manager) AssertRule(head Clause, body ...Clause) bool {
	if len(body) == 0 {
		return m.AddFact(FactText(head))
	}
	return m.AddRule(RuleText(head, body...))
}

func (m *Manager) add(text string, kind Kind) bool {
	normalized := Normalize(text)
	if normalized == "" {
		m.logger.Warn("Rejected empty statement")
		return false
	}
	if err := Validate(normalized); err != nil {
		m.logger.Warn("Rejected invalid statement", "statement", normalized, "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[normalized]; exists {
		m.logger.Debug("Skipped duplicate statement", "statement", normalized)
		return false
	}

	m.statements = append(m.statements, Statement{Text: normalized, Kind: kind})
	m.index[normalized] = struct{}{}

	if err := m.saveLocked(); err != nil {
		m.logger.Error("Failed to persist knowledge base", "path", m.path, "error", err)
	}
	return true
}

// Query strips any trailing terminator and runs the query against the
// current corpus through the executor. No solutions yields an empty list,
// not an error; an unavailable solver fails fast.
func (m *Manager) Query(ctx context.Context, query string) ([]Binding, error) {
	if m.executor == nil || !m.executor.Available() {
		return nil, ErrSolverUnavailable
	}
	return m.executor.Execute(ctx, m.Export(), query)
}

// Clear empties the collection and rewrites the backing file with the
// header comment only.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements = nil
	m.index = make(map[string]struct{})
	return m.saveLocked()
}

// Load reads the backing file, skipping blank and comment lines. A missing
// file yields an empty collection. Invalid persisted lines are logged and
// skipped rather than failing the load.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.statements = nil
			m.index = make(map[string]struct{})
			return nil
		}
		return fmt.Errorf("reading knowledge base %s: %w", m.path, err)
	}

	m.statements = nil
	m.index = make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if err := Validate(line); err != nil {
			m.logger.Warn("Skipped invalid persisted statement", "statement", line, "error", err)
			continue
		}
		if _, exists := m.index[line]; exists {
			continue
		}
		kind := KindFact
		if strings.Contains(line, ImplicationMarker) {
			kind = KindRule
		}
		m.statements = append(m.statements, Statement{Text: line, Kind: kind})
		m.index[line] = struct{}{}
	}
	return nil
}

// Save persists the collection to the backing file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating knowledge base directory: %w", err)
		}
	}
	if err := os.WriteFile(m.path, []byte(m.exportLocked()), 0o644); err != nil {
		return fmt.Errorf("writing knowledge base %s: %w", m.path, err)
	}
	return nil
}

// Export serializes the full corpus: header plus one statement per line.
func (m *Manager) Export() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exportLocked()
}

func (m *Manager) exportLocked() string {
	var b strings.Builder
	b.WriteString(headerLine1)
	b.WriteByte('\n')
	b.WriteString(headerLine2)
	b.WriteByte('\n')
	for _, s := range m.statements {
		b.WriteString(s.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Import re-validates every non-comment, non-blank line of text, routing
// lines containing the implication marker to AddRule and the rest to
// AddFact. Returns the number of statements accepted.
func (m *Manager) Import(text string) int {
	accepted := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if strings.Contains(line, ImplicationMarker) {
			if m.AddRule(line) {
				accepted++
			}
			continue
		}
		if m.AddFact(line) {
			accepted++
		}
	}
	return accepted
}
