// Package diag defines the diagnostic model shared by the link pipeline.
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short human oriented text.
//   - Subject: optional path or crate name the finding is about.
//   - Notes: extra lines of context, e.g. the linker command line.
//
// Producers emit through a Reporter (usually via ReportBuilder) and the
// session collects everything into a Bag. Rendering lives in format.go and
// is the only part of the package that performs IO.
package diag
