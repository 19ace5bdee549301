package model

// Status is the lifecycle state of an audit record.
// Each pipeline step overwrites it with the state that describes what just
// happened. Only the latest value survives a run; the step trace in
// AuditRecord.Steps keeps the full history.
type Status string

const (
	// StatusPending is the state of a freshly created record.
	StatusPending Status = "pending"

	// StatusDataBiasComplete is set after the data bias step appended its finding.
	StatusDataBiasComplete Status = "data_bias_complete"

	// StatusModelBiasComplete is set after the model bias step appended its finding.
	StatusModelBiasComplete Status = "model_bias_complete"

	// StatusModelBiasSkipped is set when no model prediction function was supplied.
	StatusModelBiasSkipped Status = "model_bias_skipped"

	// StatusExplainerComplete is set after explanations were appended.
	StatusExplainerComplete Status = "explainer_complete"

	// StatusExplainerSkipped is set when no model prediction function was supplied.
	StatusExplainerSkipped Status = "explainer_skipped"

	// StatusComplete is set by the terminal report step. A record in this
	// state is sealed and must not be modified again.
	StatusComplete Status = "complete"
)

// String returns the wire representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDataBiasComplete, StatusModelBiasComplete,
		StatusModelBiasSkipped, StatusExplainerComplete, StatusExplainerSkipped,
		StatusComplete:
		return true
	default:
		return false
	}
}

// Outcome tells whether a step did its work or deliberately skipped it.
type Outcome string

const (
	// OutcomeRan means the step executed its analysis.
	OutcomeRan Outcome = "ran"

	// OutcomeSkipped means the step's preconditions were not met.
	// A skip is a success path, never an error.
	OutcomeSkipped Outcome = "skipped"
)

// StepResult records what a single step did during a run.
type StepResult struct {
	// Name is the step name as reported by Step.Name.
	Name string `json:"name"`

	// Outcome is either OutcomeRan or OutcomeSkipped.
	Outcome Outcome `json:"outcome"`

	// Reason explains a skip. Empty when the step ran.
	Reason string `json:"reason,omitempty"`
}

// Ran returns a StepResult for a step that executed.
func Ran(name string) *StepResult {
	return &StepResult{Name: name, Outcome: OutcomeRan}
}

// Skipped returns a StepResult for a step that skipped its work.
func Skipped(name, reason string) *StepResult {
	return &StepResult{Name: name, Outcome: OutcomeSkipped, Reason: reason}
}
