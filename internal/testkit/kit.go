// Package testkit provides fixtures shared by package tests: a small vector
// table whose targets separate cleanly on two attribute axes and a persistent
// directory laid out the way the CLI expects it.
package testkit

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamshnoo/soc-bias/domain/run"
)

// Vectors is a GloVe-format table. Targets a,b lean towards attributes p,q
// and targets c,d towards r,s.
const Vectors = `a 1 0 0 0
b 0.9 0.1 0 0
c 0 1 0 0
d 0.1 0.9 0 0
p 1 0 0.1 0
q 1 0 0 0.1
r 0 1 0.1 0
s 0 1 0 0.1
`

// Weat1 is a word-level test over Vectors. With two targets per side the
// exact permutation test has six splits, so its p-value is 1/6.
const Weat1 = `{
    "targ1": {"category": "X", "type": "name", "examples": ["a", "b"]},
    "targ2": {"category": "Y", "type": "name", "examples": ["c", "d"]},
    "attr1": {"category": "A", "type": "adj", "examples": ["p", "q"]},
    "attr2": {"category": "B", "type": "adj", "examples": ["r", "s"]}
}`

// Weat1PValue is the exact p-value of Weat1 on Vectors
const Weat1PValue = 1.0 / 6.0

// Language is the language directory used by the fixtures
const Language = "hi"

// PersistentDir creates a temporary persistent directory holding the GloVe
// table at its conventional location and Weat1 under
// data/<suite>/hi/<mode>.
func PersistentDir(t testing.TB, suite, mode string) string {
	t.Helper()
	root := t.TempDir()

	glove := filepath.Join(root, "glove_models", Language, "300", "glove")
	require.NoError(t, os.MkdirAll(glove, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(glove, Language+"-d300-glove.txt"), []byte(Vectors), 0o644))

	WriteTest(t, filepath.Join(root, "data", suite, Language, mode), "weat1", Weat1)
	return root
}

// WriteTest writes a test file named id.jsonl into dir
func WriteTest(t testing.TB, dir, id, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, id+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// MemorySink is an in-memory result sink
type MemorySink struct {
	mu      sync.Mutex
	reports []*run.Report
}

// NewMemorySink creates an empty sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Write(ctx context.Context, report *run.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns the written reports in write order
func (s *MemorySink) Reports() []*run.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*run.Report(nil), s.reports...)
}
