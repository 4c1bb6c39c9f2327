package parser

// MatrixElementRecord is one energy point of a U-matrix file: the lead triple
// followed by the complex elements in the order they appeared on the line.
type MatrixElementRecord struct {
	LabEnergy     float64 // Tlab, MeV
	CMEnergy      float64 // Ecm, MeV
	MomentumIndex int
	Elements      []complex128 // U00, U01, U10, U11, ... never padded or truncated
}

// Clone returns a deep copy of the record.
func (r MatrixElementRecord) Clone() MatrixElementRecord {
	out := r
	if r.Elements != nil {
		out.Elements = make([]complex128, len(r.Elements))
		copy(out.Elements, r.Elements)
	}
	return out
}

// ParsedUMatrix holds the records of one file plus the diagnostics collected
// while reading it. Skipped lines never abort parsing.
type ParsedUMatrix struct {
	Records        []MatrixElementRecord
	CandidateLines int      // Lines that looked like data
	SkippedLines   int      // Candidate lines whose lead triple failed to parse
	ParseErrors    []string // One entry per skipped line
}

// Helper to initialize ParsedUMatrix
func NewParsedUMatrix() *ParsedUMatrix {
	return &ParsedUMatrix{
		Records:     make([]MatrixElementRecord, 0),
		ParseErrors: make([]string, 0),
	}
}
