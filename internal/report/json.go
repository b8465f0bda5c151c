package report

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/nvandessel/graphrat/internal/sim"
)

// JSONSnapshot is the wire form of one snapshot in the json format.
type JSONSnapshot struct {
	Step   int     `json:"step"`
	Nodes  int     `json:"nodes"`
	Rats   int     `json:"rats"`
	Counts []int32 `json:"counts,omitempty"`
}

// JSON writes one JSON object per snapshot followed by {"done":true}.
type JSON struct {
	enc *json.Encoder
}

// NewJSON returns a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

func (j *JSON) Report(snap sim.Snapshot) error {
	return j.enc.Encode(JSONSnapshot{
		Step:   snap.Step,
		Nodes:  snap.NodeCount,
		Rats:   snap.RatCount,
		Counts: snap.Counts,
	})
}

func (j *JSON) Done() error {
	return j.enc.Encode(map[string]bool{"done": true})
}

// Tee forwards every call to each reporter in order. All reporters are
// called even when one fails; the errors are joined.
type Tee []sim.Reporter

func (t Tee) Report(snap sim.Snapshot) error {
	var errs []error
	for _, r := range t {
		if err := r.Report(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Done() error {
	var errs []error
	for _, r := range t {
		if err := r.Done(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
