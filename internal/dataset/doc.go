// Package dataset loads tabular audit data.
//
// A dataset is a CSV file with a header row and numeric cells. Categorical
// columns are expected to be encoded before the audit (for example gender
// as 0/1). The loaded Frame keeps columns in file order and offers the
// projections the audit steps need: single columns, the label vector and
// the feature matrix without the label.
package dataset
