package channel

import (
	"log/slog"

	"github.com/user/ay_analyzer_go/internal/parser"
)

// Dataset is the parsed content of one parity channel.
type Dataset struct {
	Label   string
	Records []parser.MatrixElementRecord // File order, not energy order
}

// clone returns a deep copy so that callers can never reach the store's records.
func (d *Dataset) clone() *Dataset {
	out := &Dataset{Label: d.Label, Records: make([]parser.MatrixElementRecord, len(d.Records))}
	for i, rec := range d.Records {
		out.Records[i] = rec.Clone()
	}
	return out
}

// Diagnostics summarises how a channel's source text was parsed.
type Diagnostics struct {
	CandidateLines int
	SkippedLines   int
	ParseErrors    []string
}

// Store holds one Dataset per channel label, remembering the order in which
// labels were first loaded. It is not safe for concurrent use.
type Store struct {
	logger      *slog.Logger
	order       []string
	datasets    map[string]*Dataset
	diagnostics map[string]Diagnostics
}

// NewStore creates an empty store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:      logger,
		order:       make([]string, 0),
		datasets:    make(map[string]*Dataset),
		diagnostics: make(map[string]Diagnostics),
	}
}

// Load parses content and stores it under label, replacing any previous dataset
// for that label wholesale. A reloaded label keeps its original position.
func (s *Store) Load(label, content string) {
	s.put(label, parser.ParseUMatrix(content))
}

// LoadFile parses the file at path into label. If the file does not exist the
// store is left unchanged and a MISSING_FILE error is returned.
func (s *Store) LoadFile(label, path string) error {
	parsed, err := parser.ParseUMatrixFile(path)
	if err != nil {
		return err
	}
	s.put(label, parsed)
	s.logger.Info("Loaded channel file",
		slog.String("channel", label),
		slog.String("path", path),
		slog.Int("records", len(parsed.Records)))
	return nil
}

func (s *Store) put(label string, parsed *parser.ParsedUMatrix) {
	if _, exists := s.datasets[label]; !exists {
		s.order = append(s.order, label)
	}
	s.datasets[label] = (&Dataset{Label: label, Records: parsed.Records}).clone()
	s.diagnostics[label] = Diagnostics{
		CandidateLines: parsed.CandidateLines,
		SkippedLines:   parsed.SkippedLines,
		ParseErrors:    append([]string(nil), parsed.ParseErrors...),
	}

	if parsed.SkippedLines > 0 {
		s.logger.Warn("Skipped unparseable data lines",
			slog.String("channel", label),
			slog.Int("skipped", parsed.SkippedLines),
			slog.Int("candidates", parsed.CandidateLines))
		for _, msg := range parsed.ParseErrors {
			s.logger.Debug("Line skipped", slog.String("channel", label), slog.String("reason", msg))
		}
	}
}

// Get returns a copy of the dataset for label. A missing label is not an error.
func (s *Store) Get(label string) (*Dataset, bool) {
	ds, ok := s.datasets[label]
	if !ok {
		return nil, false
	}
	return ds.clone(), true
}

// Labels returns the loaded labels in first-load order.
func (s *Store) Labels() []string {
	return append([]string(nil), s.order...)
}

// Datasets returns copies of all datasets in first-load order.
func (s *Store) Datasets() []*Dataset {
	out := make([]*Dataset, 0, len(s.order))
	for _, label := range s.order {
		out = append(out, s.datasets[label].clone())
	}
	return out
}

// Diagnostics returns the parse diagnostics recorded for label.
func (s *Store) Diagnostics(label string) (Diagnostics, bool) {
	d, ok := s.diagnostics[label]
	if !ok {
		return Diagnostics{}, false
	}
	d.ParseErrors = append([]string(nil), d.ParseErrors...)
	return d, true
}

// TotalRecords counts records across all channels.
func (s *Store) TotalRecords() int {
	n := 0
	for _, ds := range s.datasets {
		n += len(ds.Records)
	}
	return n
}
