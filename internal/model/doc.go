// Package model defines the data structures shared by every stage of a
// FairHire audit.
//
// This package contains the following main types:
//   - AuditRecord: The value threaded through the audit pipeline
//   - Finding: A single bias verdict together with the metrics behind it
//   - Explanation: A local explanation of one model prediction
//   - Update: The partial update a pipeline step returns, and the Merge rule
//   - Error: The typed failure returned to callers (see ErrorKind)
//
// The models are designed to be serializable to JSON for report output and
// result store persistence. The model prediction function is never serialized.
package model
