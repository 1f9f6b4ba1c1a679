// Package weat holds the data model of the word/sentence embedding
// association test: concept sets, their encoded form, tests and results.
package weat

import (
	"encoding/json"
	"fmt"

	"github.com/iamshnoo/soc-bias/domain/core"
)

// Set keys used by test files
const (
	KeyTarg1 = "targ1"
	KeyTarg2 = "targ2"
	KeyAttr1 = "attr1"
	KeyAttr2 = "attr2"
)

// SetKeys lists the four concept set keys in test order
var SetKeys = []string{KeyTarg1, KeyTarg2, KeyAttr1, KeyAttr2}

// Level selects whether a test is encoded word by word or sentence by sentence
type Level string

const (
	LevelWord     Level = "word"
	LevelSentence Level = "sentence"
)

// ConceptSet is one labeled group of strings in a test
type ConceptSet struct {
	Name      string   `json:"-"`
	Category  string   `json:"category,omitempty"`
	Type      string   `json:"type,omitempty"`
	Examples  []string `json:"examples"`
	Templates []string `json:"templates,omitempty"`
	Sentences []string `json:"sentences,omitempty"`
}

// Inputs returns the strings that get encoded at the given level
func (c ConceptSet) Inputs(level Level) []string {
	if level == LevelSentence {
		return c.Sentences
	}
	return c.Examples
}

// EncodedSet maps each distinct input of a concept set to its vector.
// Keys preserves first-occurrence order for reproducible iteration.
type EncodedSet struct {
	Name    string
	Keys    []string
	Vectors map[string][]float64
}

// NewEncodedSet creates an empty encoded set
func NewEncodedSet(name string, capacity int) *EncodedSet {
	return &EncodedSet{
		Name:    name,
		Keys:    make([]string, 0, capacity),
		Vectors: make(map[string][]float64, capacity),
	}
}

// Add records the vector for key. Repeated keys keep their first vector.
func (e *EncodedSet) Add(key string, vec []float64) bool {
	if _, ok := e.Vectors[key]; ok {
		return false
	}
	e.Keys = append(e.Keys, key)
	e.Vectors[key] = vec
	return true
}

// Len returns the number of distinct inputs
func (e *EncodedSet) Len() int {
	return len(e.Keys)
}

// Ordered returns the vectors in key order
func (e *EncodedSet) Ordered() [][]float64 {
	out := make([][]float64, len(e.Keys))
	for i, k := range e.Keys {
		out[i] = e.Vectors[k]
	}
	return out
}

// Test is one association test: two target sets and two attribute sets
type Test struct {
	ID    string
	Targ1 ConceptSet
	Targ2 ConceptSet
	Attr1 ConceptSet
	Attr2 ConceptSet
}

// Sets returns the concept sets keyed the way test files key them
func (t *Test) Sets() map[string]*ConceptSet {
	return map[string]*ConceptSet{
		KeyTarg1: &t.Targ1,
		KeyTarg2: &t.Targ2,
		KeyAttr1: &t.Attr1,
		KeyAttr2: &t.Attr2,
	}
}

// Level reports sentence level when any set carries sentences
func (t *Test) Level() Level {
	for _, key := range SetKeys {
		if len(t.Sets()[key].Sentences) > 0 {
			return LevelSentence
		}
	}
	return LevelWord
}

// Validate checks that all four sets are populated at the test's level and
// that the target and attribute pairs are disjoint.
func (t *Test) Validate() error {
	level := t.Level()
	sets := t.Sets()
	for _, key := range SetKeys {
		if len(sets[key].Examples) == 0 {
			return core.NewInvalidTestError(t.ID, fmt.Sprintf("%s has no examples", key))
		}
		if len(sets[key].Inputs(level)) == 0 {
			return core.NewInvalidTestError(t.ID, fmt.Sprintf("%s has no %s inputs", key, level))
		}
	}
	if dup, ok := overlap(t.Targ1.Inputs(level), t.Targ2.Inputs(level)); ok {
		return core.NewInvalidTestError(t.ID, fmt.Sprintf("targ1 and targ2 share %q", dup))
	}
	if dup, ok := overlap(t.Attr1.Inputs(level), t.Attr2.Inputs(level)); ok {
		return core.NewInvalidTestError(t.ID, fmt.Sprintf("attr1 and attr2 share %q", dup))
	}
	return nil
}

func overlap(a, b []string) (string, bool) {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			return s, true
		}
	}
	return "", false
}

// TestResult is the outcome of one successfully executed test
type TestResult struct {
	ExperimentID   string  `json:"experiment_id" db:"experiment_id"`
	Seed           int64   `json:"seed" db:"seed"`
	EmbeddingModel string  `json:"embedding_model" db:"embedding_model"`
	TestID         string  `json:"test" db:"test_id"`
	PValue         float64 `json:"p_value" db:"p_value"`
	EffectSize     float64 `json:"effect_size" db:"effect_size"`
}

// TestFailure marks a test that could not produce a result
type TestFailure struct {
	ExperimentID   string `json:"experiment_id"`
	Seed           int64  `json:"seed"`
	EmbeddingModel string `json:"embedding_model"`
	TestID         string `json:"test"`
	Kind           string `json:"error_kind"`
	Message        string `json:"error"`
}

// Entry is one slot of a run's output: a result or a failure marker
type Entry struct {
	Result  *TestResult
	Failure *TestFailure
}

// TestID returns the test the entry belongs to
func (e Entry) TestID() string {
	if e.Result != nil {
		return e.Result.TestID
	}
	if e.Failure != nil {
		return e.Failure.TestID
	}
	return ""
}

// Failed reports whether the entry is a failure marker
func (e Entry) Failed() bool {
	return e.Failure != nil
}

// MarshalJSON writes whichever of result or failure is set
func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Result != nil:
		return json.Marshal(e.Result)
	case e.Failure != nil:
		return json.Marshal(e.Failure)
	default:
		return nil, fmt.Errorf("empty entry")
	}
}

// UnmarshalJSON reads a failure marker when error_kind is present
func (e *Entry) UnmarshalJSON(data []byte) error {
	var head struct {
		Kind *string `json:"error_kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Kind != nil {
		var f TestFailure
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*e = Entry{Failure: &f}
		return nil
	}
	var r TestResult
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Entry{Result: &r}
	return nil
}

// Results returns the successful results in entry order
func Results(entries []Entry) []TestResult {
	out := make([]TestResult, 0, len(entries))
	for _, e := range entries {
		if e.Result != nil {
			out = append(out, *e.Result)
		}
	}
	return out
}
