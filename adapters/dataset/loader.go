// Package dataset reads association tests from a directory of JSON files,
// one file per test named "<test id>.jsonl".
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/internal/natsort"
	"github.com/iamshnoo/soc-bias/ports"
)

// TestExt is the extension of test files
const TestExt = ".jsonl"

// testFile is the on-disk layout of one test
type testFile struct {
	Targ1 *weat.ConceptSet `json:"targ1"`
	Targ2 *weat.ConceptSet `json:"targ2"`
	Attr1 *weat.ConceptSet `json:"attr1"`
	Attr2 *weat.ConceptSet `json:"attr2"`
}

func (f *testFile) sets() []*weat.ConceptSet {
	return []*weat.ConceptSet{f.Targ1, f.Targ2, f.Attr1, f.Attr2}
}

// DirLoader loads tests from a single data directory
type DirLoader struct {
	dir    string
	logger *internal.Logger
}

var _ ports.TestLoader = (*DirLoader)(nil)

// NewDirLoader creates a loader for dir
func NewDirLoader(dir string, logger *internal.Logger) *DirLoader {
	return &DirLoader{dir: dir, logger: logger.OrDefault().With("dataset")}
}

// Dir returns the data directory
func (l *DirLoader) Dir() string {
	return l.dir
}

// Discover lists the test ids in the directory in natural-sort order.
// Hidden files and files without the test extension are ignored.
func (l *DirLoader) Discover(ctx context.Context) ([]string, error) {
	return discover(l.dir)
}

func discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list tests in %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, TestExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, TestExt))
	}
	natsort.Strings(ids)
	return ids, nil
}

// Load reads and parses one test. All four concept sets must be present.
func (l *DirLoader) Load(ctx context.Context, id string) (*weat.Test, error) {
	testID, err := core.ParseTestID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTestNotFound, err)
	}
	path := filepath.Join(l.dir, testID.String()+TestExt)
	l.logger.Debug("loading %s", path)

	file, err := readTestFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", core.ErrTestNotFound, id, l.dir)
	}
	if err != nil {
		return nil, err
	}

	test := &weat.Test{ID: testID.String()}
	for i, set := range file.sets() {
		key := weat.SetKeys[i]
		if set == nil {
			return nil, core.NewInvalidTestError(test.ID, fmt.Sprintf("missing %s", key))
		}
		set.Name = key
	}
	test.Targ1, test.Targ2, test.Attr1, test.Attr2 = *file.Targ1, *file.Targ2, *file.Attr1, *file.Attr2
	return test, nil
}

func readTestFile(path string) (*testFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file testFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", core.ErrInvalidTest, filepath.Base(path), err)
	}
	return &file, nil
}
