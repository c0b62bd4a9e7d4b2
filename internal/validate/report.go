package validate

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Case outcomes.
const (
	CasePassed  = "passed"
	CaseFailed  = "failed"
	CaseSkipped = "skipped"
)

// Report is the outcome of a suite run.
type Report struct {
	Suite   string       `json:"suite"`
	Engine  string       `json:"engine"`
	ISA     string       `json:"isa"`
	Started time.Time    `json:"started"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Skipped int          `json:"skipped"`
	Cases   []CaseReport `json:"cases"`
}

// CaseReport is the outcome of one case. Skipped cases hit an
// unimplemented configuration.
type CaseReport struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Status   string  `json:"status"`
	Duration int64   `json:"duration_ms"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func (r *Report) tally() {
	r.Passed, r.Failed, r.Skipped = 0, 0, 0
	for _, c := range r.Cases {
		switch c.Status {
		case CasePassed:
			r.Passed++
		case CaseFailed:
			r.Failed++
		case CaseSkipped:
			r.Skipped++
		}
	}
}

// OK reports whether no case failed.
func (r *Report) OK() bool { return r.Failed == 0 }

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
