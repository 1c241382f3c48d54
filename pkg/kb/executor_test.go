package kb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeFakeSolver installs a shell script standing in for the real solver
// binary, so executor behavior is testable without one installed.
func writeFakeSolver(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake solver scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fakesolver")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("writing fake solver: %v", err)
	}
	return path
}

func TestExecutor_Available(t *testing.T) {
	missing := NewExecutor(ExecutorConfig{SolverPath: "/nonexistent/solver-binary"}, noopLogger)
	if missing.Available() {
		t.Error("expected missing solver to be unavailable")
	}

	present := NewExecutor(ExecutorConfig{SolverPath: writeFakeSolver(t, "exit 0")}, noopLogger)
	if !present.Available() {
		t.Error("expected fake solver to be available")
	}
}

func TestExecutor_ParsesTaggedLines(t *testing.T) {
	solver := writeFakeSolver(t, strings.Join([]string{
		`echo "` + solutionTag + `|ada|byron"`,
		`echo "some unrelated solver chatter"`,
		`echo "` + solutionTag + `|carol|byron"`,
	}, "\n"))

	e := NewExecutor(ExecutorConfig{SolverPath: solver}, noopLogger)
	results, err := e.Execute(context.Background(), "person(ada).", "parent_of(X, Y)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 solutions, got %d", len(results))
	}
	if results[0]["X"] != "ada" || results[0]["Y"] != "byron" {
		t.Errorf("unexpected first binding: %v", results[0])
	}
	if results[1]["X"] != "carol" || results[1]["Y"] != "byron" {
		t.Errorf("unexpected second binding: %v", results[1])
	}
}

func TestExecutor_GroundQuery(t *testing.T) {
	solver := writeFakeSolver(t, `echo "`+solutionTag+`"`)

	e := NewExecutor(ExecutorConfig{SolverPath: solver}, noopLogger)
	results, err := e.Execute(context.Background(), "person(ada).", "person(ada)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 solution for ground query, got %d", len(results))
	}
	if len(results[0]) != 0 {
		t.Errorf("expected empty binding for ground query, got %v", results[0])
	}
}

func TestExecutor_NonZeroExitIsZeroResults(t *testing.T) {
	e := NewExecutor(ExecutorConfig{SolverPath: writeFakeSolver(t, "exit 2")}, noopLogger)
	results, err := e.Execute(context.Background(), "", "person(X)")
	if err != nil {
		t.Fatalf("expected non-zero exit to be absorbed, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected zero results, got %d", len(results))
	}
}

func TestExecutor_TimeoutIsZeroResults(t *testing.T) {
	solver := writeFakeSolver(t, "sleep 5\necho \""+solutionTag+"|late\"")

	e := NewExecutor(ExecutorConfig{SolverPath: solver, Timeout: 100 * time.Millisecond}, noopLogger)
	start := time.Now()
	results, err := e.Execute(context.Background(), "", "person(X)")
	if err != nil {
		t.Fatalf("expected timeout to be absorbed, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected zero results after timeout, got %d", len(results))
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestExecutor_ScratchFileCleanedUp(t *testing.T) {
	scratchDir := t.TempDir()

	tests := []struct {
		name   string
		script string
	}{
		{name: "success", script: `echo "` + solutionTag + `|ada"`},
		{name: "failure", script: "exit 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(ExecutorConfig{
				SolverPath: writeFakeSolver(t, tt.script),
				ScratchDir: scratchDir,
			}, noopLogger)
			if _, err := e.Execute(context.Background(), "person(ada).", "person(X)"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			entries, err := os.ReadDir(scratchDir)
			if err != nil {
				t.Fatalf("reading scratch dir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("expected scratch dir to be empty, found %d entries", len(entries))
			}
		})
	}
}

func TestExecutor_ProgramShape(t *testing.T) {
	captured := filepath.Join(t.TempDir(), "captured.pl")
	solver := writeFakeSolver(t, fmt.Sprintf(`cp "$3" %q`, captured))

	e := NewExecutor(ExecutorConfig{SolverPath: solver}, noopLogger)
	corpus := "person(ada).\nparent_of(byron, ada).\n"
	if _, err := e.Execute(context.Background(), corpus, "parent_of(X, ada)."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(captured)
	if err != nil {
		t.Fatalf("fake solver did not receive a scratch file: %v", err)
	}
	program := string(data)

	if !strings.Contains(program, "person(ada).") {
		t.Error("program missing corpus facts")
	}
	if !strings.Contains(program, ":- forall((parent_of(X, ada)), (write('"+solutionTag+"'), write('|'), write(X), nl)).") {
		t.Errorf("program missing goal directive:\n%s", program)
	}
	if !strings.Contains(program, ":- halt.") {
		t.Error("program missing halt directive")
	}
	if strings.Index(program, "person(ada).") > strings.Index(program, ":- forall") {
		t.Error("corpus must precede the goal directive")
	}
}

func TestExecutor_LaunchFailureIsError(t *testing.T) {
	e := NewExecutor(ExecutorConfig{SolverPath: "/nonexistent/solver-binary"}, noopLogger)
	if _, err := e.Execute(context.Background(), "", "person(X)"); err == nil {
		t.Error("expected launch failure to surface as an error")
	}
}

func TestQueryVariables(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "two variables", query: "parent_of(X, Y)", want: []string{"X", "Y"}},
		{name: "repeated variable once", query: "parent_of(X, X)", want: []string{"X"}},
		{name: "ground query", query: "person(ada)", want: nil},
		{name: "order of first appearance", query: "knows(B, A), alive(A)", want: []string{"B", "A"}},
		{name: "multi character names", query: "works_at(Who, Place)", want: []string{"Who", "Place"}},
		{name: "ignores quoted text", query: "first_name(X, 'Ada Lovelace')", want: []string{"X"}},
		{name: "ignores lowercase atoms", query: "sibling_of(bob, carol)", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queryVariables(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseSolutions(t *testing.T) {
	output := []byte(strings.Join([]string{
		"Warning: discontiguous clauses",
		solutionTag + "|ada|1815",
		solutionTag + "garbage-without-separator",
		solutionTag + "|byron|1788",
		"",
	}, "\n"))

	results := parseSolutions(output, []string{"Name", "Year"})
	if len(results) != 2 {
		t.Fatalf("expected 2 solutions, got %d", len(results))
	}
	if results[0]["Name"] != "ada" || results[0]["Year"] != "1815" {
		t.Errorf("unexpected binding: %v", results[0])
	}
	if results[1]["Name"] != "byron" || results[1]["Year"] != "1788" {
		t.Errorf("unexpected binding: %v", results[1])
	}
}
