// Package pipeline runs an audit as an ordered chain of steps.
//
// A Step reads a private copy of the audit record and returns a partial
// update naming only the fields it changes. The Pipeline applies the steps
// strictly in order and merges every update into its working record, so
// sequence fields accumulate and scalar fields take the latest value. A step
// error stops the run and is returned to the caller unchanged.
//
// The default chain is data bias, model bias, explainer, report. The model
// bias and explainer steps skip themselves when the record carries no
// prediction function; a skip is a successful outcome, not an error.
//
// BatchProcessor runs independent audits concurrently, one pipeline per
// request, bounded with errgroup.
package pipeline
