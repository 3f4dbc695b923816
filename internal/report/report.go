// Package report renders a write plan as a human-readable summary.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/planner"
	"github.com/hpungsan/tagfit/internal/record"
)

// previewLen is the number of payload characters shown per record.
const previewLen = 48

// Data is everything a report shows.
type Data struct {
	Title           string
	TagType         capacity.TagType
	UsableBytes     int
	EffectiveBudget int
	Plan            *planner.WritePlan
}

var markdown = sync.OnceValue(func() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
})

// Markdown renders d as a markdown document.
func Markdown(d Data) string {
	var b strings.Builder

	title := d.Title
	if title == "" {
		title = "Write plan"
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))

	fmt.Fprintf(&b, "- **Tag type:** %s (%s usable bytes)\n", d.TagType, formatBytes(d.UsableBytes))
	fmt.Fprintf(&b, "- **Effective budget:** %s bytes\n", formatBytes(d.EffectiveBudget))
	fmt.Fprintf(&b, "- **Encoded size:** %s bytes\n", formatBytes(d.Plan.TotalEncodedSize))
	fmt.Fprintf(&b, "- **Free:** %s bytes\n", formatBytes(d.Plan.Remaining(d.EffectiveBudget)))

	fmt.Fprintf(&b, "\n## Included (%d)\n\n", len(d.Plan.Included))
	writeTable(&b, d.Plan.Included, true)

	fmt.Fprintf(&b, "\n## Excluded (%d)\n\n", len(d.Plan.Excluded))
	if len(d.Plan.Excluded) == 0 {
		b.WriteString("Nothing was dropped.\n")
	} else {
		writeTable(&b, d.Plan.Excluded, false)
	}

	return b.String()
}

// HTML renders d as an HTML fragment.
func HTML(d Data) (string, error) {
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(Markdown(d)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeTable(b *strings.Builder, records []record.Record, markMandatory bool) {
	b.WriteString("| # | Kind | Size | Payload |\n")
	b.WriteString("|---:|---|---:|---|\n")
	for i, r := range records {
		kind := string(r.Kind)
		if markMandatory && i < planner.MandatoryCount {
			kind += " (mandatory)"
		}
		fmt.Fprintf(b, "| %d | %s | %d | %s |\n", i+1, kind, record.Size(r), preview(r))
	}
}

// preview returns a single-line, table-safe excerpt of a record's payload.
func preview(r record.Record) string {
	s := r.String()
	if r.Kind != record.KindOpaque {
		s = strings.Join(strings.Fields(s), " ")
		if runes := []rune(s); len(runes) > previewLen {
			s = string(runes[:previewLen-1]) + "…"
		}
		s = "`" + strings.ReplaceAll(s, "`", "'") + "`"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func escape(s string) string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;", "\n", " ").Replace(s)
}

// formatBytes formats an integer with comma thousands separators.
func formatBytes(n int) string {
	if n < 0 {
		return "-" + formatBytes(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
