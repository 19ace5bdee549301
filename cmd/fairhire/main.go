// Package main provides the entry point for the FairHire CLI.
//
// FairHire audits hiring datasets and screening models for bias.
// It measures statistical parity of the historical outcomes, the fairness
// of a model's predictions across sensitive groups, and explains the
// model's decisions for individual candidates.
//
// Usage:
//
//	fairhire audit <dataset.csv>
//	fairhire audit --model screening.yaml <dataset.csv>
//	fairhire serve
//
// See --help for all available options.
package main

// main is the entry point for FairHire.
func main() {
	Execute()
}
