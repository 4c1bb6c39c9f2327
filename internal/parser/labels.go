package parser

import (
	"path/filepath"
	"strings"
)

// LabelRule assigns Label to any file whose base name contains Match.
type LabelRule struct {
	Match string
	Label string
}

// LabelTable is an ordered list of rules; the first match wins.
type LabelTable []LabelRule

// DefaultLabelTable is the solver's naming convention for the two J=1/2 parity
// channels, e.g. U_PW_elements_Np_30_Nq_30_JP_1_-1_Jmax_1_PSI_0.txt.
func DefaultLabelTable() LabelTable {
	return LabelTable{
		{Match: "JP_1_1_", Label: "JP=1/2+"},
		{Match: "JP_1_-1_", Label: "JP=1/2-"},
	}
}

// LabelFor returns the channel label for the file at path.
func (t LabelTable) LabelFor(path string) (string, bool) {
	base := filepath.Base(path)
	for _, rule := range t {
		if rule.Match != "" && strings.Contains(base, rule.Match) {
			return rule.Label, true
		}
	}
	return "", false
}
