// Package report prints sniffer results.
//
// ConsoleReporter prints the findings of each file as soon as it has been
// sniffed. The Writer implementations render the aggregate of a whole run:
//   - SimpleWriter: human-readable text
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: tables and charts for pull request comments
//   - SARIFWriter: SARIF 2.1.0 for code scanning uploads
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
