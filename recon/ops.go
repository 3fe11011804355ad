package recon

import (
	"encoding/json"
	"time"
)

// Action is what the engine decided to do for one entity. There is no delete
// action anywhere in the sync; remote entities the document no longer
// mentions are left alone.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionSkip:
		return "skip"
	default:
		return "unchanged"
	}
}

// MarshalText makes actions readable in JSON responses and reports.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Operation describes one planned remote mutation (or the decision not to
// make one).
type Operation struct {
	Entity string `json:"entity"`
	Title  string `json:"title"`
	Action Action `json:"action"`
	// Fields lists what differs, for updates.
	Fields []string `json:"fields,omitempty"`
	// Reason explains skips.
	Reason string `json:"reason,omitempty"`
}

// Plan is the dry-run product: every operation the engine would perform, in
// execution order, without any remote writes.
type Plan struct {
	Ops []Operation `json:"operations"`
}

// Changes reports how many operations would actually mutate the remote side.
func (p *Plan) Changes() int {
	n := 0
	for _, op := range p.Ops {
		if op.Action == ActionCreate || op.Action == ActionUpdate {
			n++
		}
	}
	return n
}

// Outcome is one executed (or skipped, or failed) operation.
type Outcome struct {
	Operation
	RemoteID string
	Err      error
}

// MarshalJSON flattens the embedded operation and renders the error as its
// message, since error values otherwise marshal as empty objects.
func (o Outcome) MarshalJSON() ([]byte, error) {
	wire := struct {
		Operation
		RemoteID string `json:"remote_id,omitempty"`
		Error    string `json:"error,omitempty"`
	}{Operation: o.Operation, RemoteID: o.RemoteID}
	if o.Err != nil {
		wire.Error = o.Err.Error()
	}
	return json.Marshal(wire)
}

// Summary aggregates a full engine run. A run with Failed > 0 still carries
// the successful outcomes; failures are isolated per entity.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (s *Summary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case o.Err != nil:
		s.Failed++
	case o.Action == ActionCreate:
		s.Created++
	case o.Action == ActionUpdate:
		s.Updated++
	case o.Action == ActionSkip:
		s.Skipped++
	default:
		s.Unchanged++
	}
}

// Errs returns the errors of all failed outcomes.
func (s *Summary) Errs() []error {
	var out []error
	for _, o := range s.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}
