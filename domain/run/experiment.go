package run

import (
	"fmt"

	"github.com/iamshnoo/soc-bias/domain/core"
)

// ExperimentID builds the identifier results are filed under:
// name, then "_t-<bias>" when a bias type is given, then "_s-<seed>" when a
// seed is given.
func ExperimentID(name, biasType string, seed *int64) core.ExperimentID {
	id := name
	if biasType != "" {
		id += "_t-" + biasType
	}
	if seed != nil {
		id += fmt.Sprintf("_s-%d", *seed)
	}
	return core.ExperimentID(id)
}

// DefaultExperimentName is the name used when none is configured
func DefaultExperimentName(suite, mode, model string) string {
	return fmt.Sprintf("%s_all_%s_%s", suite, mode, model)
}
