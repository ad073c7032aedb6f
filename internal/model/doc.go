// Package model defines the data passed between the sniffer, the pipeline
// and the reporters.
//
//   - File: an HTML file moving through the pipeline, annotated with its
//     sniff report once HTML_CodeSniffer has run
//   - Report: the parsed sniffer output, its messages and runtime errors
//   - Message: a single ERROR, WARNING or NOTICE for one element
//   - Options: how a file is sniffed (standard, timeout, browser flags)
//
// The models live in their own package so that sniffer, report and
// database can share them without import cycles. They serialize to the
// JSON produced by the runner scripts.
package model
