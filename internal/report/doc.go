// Package report renders audit results.
//
// Renderer is the report builder run by the final pipeline step. It turns
// the accumulated findings into the Markdown report stored on the record
// and into a structured summary for API clients.
//
// The Writer implementations present a whole audit record to a user:
//   - SimpleWriter: coloured text for the terminal
//   - MarkdownWriter: Markdown for sharing and documentation
//   - JSONWriter: the record as JSON for tool integration
//
// Compare computes how the findings of two stored audits differ.
package report
