// Package pipeline runs HTML files through a sequence of steps.
//
// Each file becomes a model.File that flows through inspection, sniffing,
// console reporting and storage. A step receives the file and may annotate
// it. Files are independent of each other, so BatchProcessor runs one
// pipeline per file with bounded concurrency using errgroup.
package pipeline
