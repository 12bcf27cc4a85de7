// Package univariate compares two sample groups row by row and reports the
// canonical differential result columns.
package univariate

import (
	"fmt"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// Test is a univariate test kind.
type Test int

const (
	MannWhitney Test = iota
	KruskalWallis
	RankSum
	Wilcoxon
	StudentT
	BrunnerMunzel
	Permutation
	DistFit
	NoTest
)

var testNames = []string{
	MannWhitney:   "MW",
	KruskalWallis: "KW",
	RankSum:       "ranksum",
	Wilcoxon:      "Wcox",
	StudentT:      "Tt",
	BrunnerMunzel: "BrMu",
	Permutation:   "prm-scipy",
	DistFit:       "disfit",
	NoTest:        "none",
}

func (t Test) String() string {
	if int(t) < 0 || int(t) >= len(testNames) {
		return fmt.Sprintf("Test(%d)", int(t))
	}
	return testNames[t]
}

// ParseTest maps a test name to a Test.
func ParseTest(s string) (Test, error) {
	for i, name := range testNames {
		if name == s {
			return Test(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedTest, s)
}

// UnmarshalText lets Test be decoded from configuration.
func (t *Test) UnmarshalText(text []byte) error {
	parsed, err := ParseTest(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// RowWise reports whether the test scores each row on its own values.
func (t Test) RowWise() bool {
	return t != DistFit && t != NoTest
}
