package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion sets the version shown in the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a formatter with untranslated labels.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Encoding Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format(time.RFC3339))

	f.section(&b, "Source", [][2]string{
		{t("Source"), sourceLabel(s.Source, t)},
		{t("Frames Read"), fmt.Sprintf("%d", s.Source.Frames)},
	})

	st := s.Settings
	f.section(&b, "Settings", [][2]string{
		{t("Codec"), orNone(st.Codec, t)},
		{t("Dimensions"), fmt.Sprintf("%dx%d", st.Width, st.Height)},
		{t("Frame Rate"), orNone(st.FPS, t)},
		{t("Rate Control"), rateControl(st)},
		{t("Preset"), orNone(st.Preset, t)},
		{t("Tune"), orNone(st.Tune, t)},
		{t("Profile"), orNone(st.Profile, t)},
		{t("Container"), orNone(st.Container, t)},
		{t("Single Fragment"), yesNo(st.Optimize, t)},
	})

	out := s.Output
	rows := [][2]string{
		{t("Output File"), orNone(out.Path, t)},
		{t("Packets"), fmt.Sprintf("%d", out.Packets)},
		{t("Keyframes"), fmt.Sprintf("%d", out.Keyframes)},
		{t("Video Duration"), fmt.Sprintf("%d ms", out.DurationMs)},
		{t("Video File Size"), formatBytes(out.FileSize)},
		{t("Payload Size"), formatBytes(out.PayloadBytes)},
		{t("GOP Size"), fmt.Sprintf("%d", out.GOPSize)},
		{t("Time Base"), orNone(out.TimeBase, t)},
	}
	if out.Fragments > 0 {
		rows = append(rows, [2]string{t("Fragments"), fmt.Sprintf("%d", out.Fragments)})
	}
	if len(out.IgnoredOptions) > 0 {
		rows = append(rows, [2]string{t("Ignored Options"), strings.Join(out.IgnoredOptions, ", ")})
	}
	f.section(&b, "Output", rows)

	b.WriteString("---\n\n")
	footer := t("Generated by") + " camencoder"
	if f.version != "" {
		footer += " " + f.version
	}
	b.WriteString(footer + "\n")
	return b.String()
}

func (f *MarkdownFormatter) section(b *strings.Builder, title string, rows [][2]string) {
	t := f.translate
	fmt.Fprintf(b, "## %s\n\n", t(title))
	fmt.Fprintf(b, "| %s | %s |\n", t("Item"), t("Value"))
	b.WriteString("|------|-------|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", r[0], escapeCell(r[1]))
	}
	b.WriteString("\n")
}

func sourceLabel(src SourceInfo, t func(string) string) string {
	switch {
	case src.Kind == "":
		return t("None")
	case src.Path == "":
		return t(src.Kind)
	default:
		return fmt.Sprintf("%s (%s)", src.Path, t(src.Kind))
	}
}

func rateControl(st Settings) string {
	if st.Bitrate > 0 {
		return fmt.Sprintf("%d kbps", st.Bitrate)
	}
	return fmt.Sprintf("CRF %d", st.Quality)
}

func orNone(v string, t func(string) string) string {
	if v == "" {
		return t("None")
	}
	return v
}

func yesNo(v bool, t func(string) string) string {
	if v {
		return t("Yes")
	}
	return t("No")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// formatBytes renders a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}
