package run

import (
	"testing"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/weat"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	experimentID := core.ExperimentID("seat_all_lang_spec_glove")
	testsHash := core.ComputeTestListHash([]string{"sent-weat1", "sent-weat2"})

	fp1 := NewRunFingerprint(experimentID, "glove", testsHash, 0, 1000, false)
	fp2 := NewRunFingerprint(experimentID, "glove", testsHash, 0, 1000, false)

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.ExperimentID != experimentID {
		t.Errorf("ExperimentID mismatch: %s vs %s", fp1.ExperimentID, experimentID)
	}
	if fp1.TestListHash != testsHash {
		t.Errorf("TestListHash mismatch: %s vs %s", fp1.TestListHash, testsHash)
	}
	if fp1.NSamples != 1000 {
		t.Errorf("NSamples mismatch: %d", fp1.NSamples)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	experimentID := core.ExperimentID("seat_all_lang_spec_glove")
	testsHash := core.ComputeTestListHash([]string{"sent-weat1"})
	base := NewRunFingerprint(experimentID, "glove", testsHash, 0, 1000, false)

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different experiment", NewRunFingerprint("other", "glove", testsHash, 0, 1000, false)},
		{"different model", NewRunFingerprint(experimentID, "fasttext", testsHash, 0, 1000, false)},
		{"different tests", NewRunFingerprint(experimentID, "glove", core.ComputeTestListHash([]string{"sent-weat2"}), 0, 1000, false)},
		{"different seed", NewRunFingerprint(experimentID, "glove", testsHash, 1, 1000, false)},
		{"different samples", NewRunFingerprint(experimentID, "glove", testsHash, 0, 100, false)},
		{"parametric", NewRunFingerprint(experimentID, "glove", testsHash, 0, 1000, true)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestRunFingerprint_TestOrderIgnored(t *testing.T) {
	a := NewRunFingerprint("exp", "glove", core.ComputeTestListHash([]string{"t1", "t2"}), 0, 10, false)
	b := NewRunFingerprint("exp", "glove", core.ComputeTestListHash([]string{"t2", "t1"}), 0, 10, false)
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("test order should not change the fingerprint")
	}
}

func TestManifest_Complete(t *testing.T) {
	runID := core.RunID("test-run")
	tests := []string{"sent-weat1", "sent-weat2"}

	manifest := NewManifest(runID, "seat_all_lang_spec_glove", "glove", 42, 1000, false, tests)

	if manifest.RunID != runID {
		t.Errorf("RunID not set correctly")
	}
	if manifest.Seed != 42 {
		t.Errorf("Seed not set correctly")
	}
	if len(manifest.Tests) != 2 {
		t.Errorf("Tests not set correctly")
	}
	if manifest.Fingerprint.Fingerprint == "" {
		t.Errorf("Fingerprint not computed")
	}
	if manifest.CreatedAt.IsZero() {
		t.Errorf("CreatedAt not set")
	}
	if err := manifest.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}

	tests[0] = "mutated"
	if manifest.Tests[0] != "sent-weat1" {
		t.Errorf("manifest should own its test list")
	}
}

func TestManifest_Validate(t *testing.T) {
	cases := []struct {
		name     string
		manifest *Manifest
	}{
		{"missing run id", NewManifest("", "exp", "glove", 0, 10, false, nil)},
		{"missing experiment", NewManifest("r", "", "glove", 0, 10, false, nil)},
		{"missing model", NewManifest("r", "exp", "", 0, 10, false, nil)},
		{"no samples", NewManifest("r", "exp", "glove", 0, 0, false, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.manifest.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	if err := NewManifest("r", "exp", "glove", 0, 0, true, nil).Validate(); err != nil {
		t.Errorf("parametric runs need no samples: %v", err)
	}
}

func TestExperimentID(t *testing.T) {
	seed := int64(3)
	cases := []struct {
		name     string
		biasType string
		seed     *int64
		want     core.ExperimentID
	}{
		{"seat_all_lang_spec_glove", "", nil, "seat_all_lang_spec_glove"},
		{"seat", "gender", nil, "seat_t-gender"},
		{"seat", "", &seed, "seat_s-3"},
		{"seat", "religion", &seed, "seat_t-religion_s-3"},
	}
	for _, tc := range cases {
		if got := ExperimentID(tc.name, tc.biasType, tc.seed); got != tc.want {
			t.Errorf("ExperimentID(%q, %q) = %q, want %q", tc.name, tc.biasType, got, tc.want)
		}
	}

	if got := DefaultExperimentName("seat", "trans", "elmo"); got != "seat_all_trans_elmo" {
		t.Errorf("DefaultExperimentName = %q", got)
	}
}

func TestReport_SplitsEntries(t *testing.T) {
	report := &Report{Entries: []weat.Entry{
		{Result: &weat.TestResult{TestID: "t1"}},
		{Failure: &weat.TestFailure{TestID: "t2", Kind: core.FailureEncoding}},
		{Result: &weat.TestResult{TestID: "t10"}},
	}}

	if got := len(report.Results()); got != 2 {
		t.Errorf("Results() = %d, want 2", got)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].TestID != "t2" {
		t.Errorf("Failures() = %+v", failures)
	}
}
