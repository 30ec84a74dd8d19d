// Package summarizer builds and renders reports of encoding runs.
package summarizer

// Formatter renders a run summary, e.g. as the Markdown report written by
// "camencoder encode --summary".
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc lets a plain function render summaries.
type FormatFunc func(summary *Summary) string

func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}
