package kb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultSolver is the logic solver binary resolved from PATH.
	DefaultSolver = "swipl"

	// DefaultTimeout bounds one solver invocation.
	DefaultTimeout = 5 * time.Second

	// solutionTag prefixes every solution line the solver prints, so
	// result rows can be picked out of arbitrary solver output.
	solutionTag = "SOLUTION"
)

// Binding is one query solution: variable name to printed value.
type Binding map[string]string

// queryVarPattern matches solver variables: an uppercase letter followed
// by word characters. Underscore-prefixed variables are "don't care" and
// are not reported in bindings.
var queryVarPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9_]*\b`)

// ExecutorConfig configures the solver subprocess. Zero values fall back
// to DefaultSolver, DefaultTimeout and the system temp directory.
type ExecutorConfig struct {
	SolverPath string
	Timeout    time.Duration
	ScratchDir string
}

// Executor runs ad-hoc queries by materializing the statement corpus plus
// a goal directive into a scratch file and invoking the external solver on
// it. It keeps no state between calls; every invocation is independent.
type Executor struct {
	solverPath string
	timeout    time.Duration
	scratchDir string
	logger     *slog.Logger
}

// NewExecutor builds an executor, applying defaults for zero config values.
func NewExecutor(cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if cfg.SolverPath == "" {
		cfg.SolverPath = DefaultSolver
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		solverPath: cfg.SolverPath,
		timeout:    cfg.Timeout,
		scratchDir: cfg.ScratchDir,
		logger:     logger,
	}
}

// Available reports whether the solver binary can be resolved.
func (e *Executor) Available() bool {
	_, err := exec.LookPath(e.solverPath)
	return err == nil
}

// Execute runs one query against the given corpus and returns a binding
// per solution. Timeouts, non-zero exits and queries with no solutions all
// yield zero results; only launch and I/O failures surface as errors. The
// scratch file is removed regardless of outcome.
func (e *Executor) Execute(ctx context.Context, corpus, query string) ([]Binding, error) {
	query = strings.TrimSuffix(strings.TrimSpace(query), Terminator)
	if query == "" {
		return []Binding{}, nil
	}
	vars := queryVariables(query)

	scratch, err := os.CreateTemp(e.scratchDir, "kb-*.pl")
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath)

	if _, err := scratch.WriteString(buildProgram(corpus, query, vars)); err != nil {
		scratch.Close()
		return nil, fmt.Errorf("writing scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return nil, fmt.Errorf("closing scratch file: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.solverPath, "-q", "-f", scratchPath)
	output, err := cmd.Output()
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			e.logger.Warn("Solver query timed out", "query", query, "timeout", e.timeout)
			return []Binding{}, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			e.logger.Debug("Solver exited non-zero, treating as zero results",
				"query", query, "exit_code", exitErr.ExitCode())
			return []Binding{}, nil
		}
		return nil, fmt.Errorf("invoking solver: %w", err)
	}

	return parseSolutions(output, vars), nil
}

// buildProgram materializes the solver program: an unknown-predicate flag
// so queries over missing predicates fail instead of raising, the corpus,
// a goal directive printing one tagged line per solution, and a halt.
func buildProgram(corpus, query string, vars []string) string {
	var b strings.Builder
	b.WriteString(":- set_prolog_flag(unknown, fail).\n")
	b.WriteString(corpus)
	if corpus != "" && !strings.HasSuffix(corpus, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(":- forall((")
	b.WriteString(query)
	b.WriteString("), (write('")
	b.WriteString(solutionTag)
	b.WriteString("')")
	for _, v := range vars {
		b.WriteString(", write('|'), write(")
		b.WriteString(v)
		b.WriteString(")")
	}
	b.WriteString(", nl)).\n:- halt.\n")
	return b.String()
}

// queryVariables extracts the distinct solver variables from a query in
// order of first appearance, ignoring anything inside quoted spans.
func queryVariables(query string) []string {
	var vars []string
	seen := make(map[string]struct{})
	for _, v := range queryVarPattern.FindAllString(stripQuoted(query), -1) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		vars = append(vars, v)
	}
	return vars
}

// stripQuoted blanks out quoted spans so variable extraction never picks
// up capitalized words inside string literals.
func stripQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote rune
	escaped := false
	for _, r := range s {
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case quote:
				quote = 0
				b.WriteByte(' ')
			}
			continue
		}
		if r == '\'' || r == '"' {
			quote = r
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseSolutions picks tagged lines out of solver output and maps the
// printed values back to query variables by position.
func parseSolutions(output []byte, vars []string) []Binding {
	results := []Binding{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, solutionTag) {
			continue
		}
		rest := line[len(solutionTag):]
		if rest == "" {
			results = append(results, Binding{})
			continue
		}
		if rest[0] != '|' {
			continue
		}
		values := strings.Split(rest[1:], "|")
		binding := make(Binding, len(vars))
		for i, v := range vars {
			if i < len(values) {
				binding[v] = values[i]
			}
		}
		results = append(results, binding)
	}
	return results
}
