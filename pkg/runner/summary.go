package runner

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/praetorian-inc/vantage/pkg/selection"
	"github.com/praetorian-inc/vantage/pkg/types"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Report is the outcome of one collector.
type Report struct {
	Name         string
	Status       Status
	Results      int
	FormatErrors int
	Elapsed      time.Duration
	Err          error
}

type Summary struct {
	RunID   uuid.UUID
	Target  string
	Started time.Time
	Elapsed time.Duration
	Reports []Report
	// Warnings are carried over from selection so skipped collectors are
	// accounted for alongside the ones that ran.
	Warnings []selection.Warning
}

// Failed returns the reports of collectors that did not complete.
func (s *Summary) Failed() []Report {
	var out []Report
	for _, r := range s.Reports {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) Report(name string) (Report, bool) {
	for _, r := range s.Reports {
		if r.Name == name {
			return r, true
		}
	}
	return Report{}, false
}

// Table renders the per-collector accounting printed at the end of a run.
func (s *Summary) Table() types.MarkdownTable {
	t := types.MarkdownTable{
		TableHeading: fmt.Sprintf("Run %s", s.RunID),
		Headers:      []string{"Collector", "Status", "Results", "Format errors", "Elapsed", "Error"},
	}
	for _, r := range s.Reports {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.Rows = append(t.Rows, []string{
			r.Name,
			string(r.Status),
			strconv.Itoa(r.Results),
			strconv.Itoa(r.FormatErrors),
			r.Elapsed.Round(time.Millisecond).String(),
			errText,
		})
	}
	for _, w := range s.Warnings {
		if w.Kind != selection.UnknownCollector && w.Kind != selection.RemoteExcluded {
			continue
		}
		t.Rows = append(t.Rows, []string{w.Name, string(StatusSkipped), "0", "0", "", w.Reason})
	}
	return t
}
