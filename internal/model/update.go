package model

import (
	"errors"
	"slices"
)

var (
	// ErrRecordSealed is returned by Merge when the record is already complete.
	ErrRecordSealed = errors.New("audit record is complete and can no longer be modified")

	// ErrReportAlreadyWritten is returned by Merge when an update tries to
	// write the report a second time.
	ErrReportAlreadyWritten = errors.New("audit report has already been written")

	// ErrInvalidStatus is returned by Merge when an update carries an unknown status.
	ErrInvalidStatus = errors.New("invalid audit status")
)

// Update is the partial update returned by a pipeline step.
// It names only the fields the step changes; zero values mean "untouched".
type Update struct {
	// Findings are appended to the record's findings.
	Findings []Finding

	// Explanations are appended to the record's explanations.
	Explanations []Explanation

	// Report overwrites the record's report when non-nil.
	Report *string

	// Status overwrites the record's status when non-empty.
	Status Status

	// Step is appended to the record's step trace when non-nil.
	Step *StepResult
}

// WithReport returns an update that writes the given report text.
func (u Update) WithReport(report string) Update {
	u.Report = &report
	return u
}

// Merge applies u to r using the pipeline merge rule:
// sequence fields are concatenated and scalar fields are overwritten.
// Sequences are rebuilt into fresh slices so the record never shares backing
// arrays with a step's update.
//
// Design decision: A record whose status is complete is sealed and Merge
// refuses it with ErrRecordSealed. The report step is the last writer, and
// the stores only accept complete records, so anything merged after it
// would either be lost or silently change a report that was already
// rendered. The same reasoning makes a second report write an error.
func Merge(r *AuditRecord, u Update) error {
	if r.Status == StatusComplete {
		return ErrRecordSealed
	}
	if u.Status != "" && !u.Status.IsValid() {
		return ErrInvalidStatus
	}
	if u.Report != nil && r.Report != "" {
		return ErrReportAlreadyWritten
	}

	if len(u.Findings) > 0 {
		r.Findings = slices.Concat(r.Findings, cloneFindings(u.Findings))
	}
	if len(u.Explanations) > 0 {
		r.Explanations = slices.Concat(r.Explanations, cloneExplanations(u.Explanations))
	}
	if u.Step != nil {
		r.Steps = append(slices.Clip(r.Steps), *u.Step)
	}
	if u.Report != nil {
		r.Report = *u.Report
	}
	if u.Status != "" {
		r.Status = u.Status
	}
	return nil
}
