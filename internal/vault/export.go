package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TimeFormat is how note timestamps are shown to users and in exports.
const TimeFormat = "2006-01-02 03:04:05 PM"

// Export formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

const exportBanner = `🧠━━━━━━━━━━━━━━━━━━━━━━━━━━━━━🧠
   BRAIN VAULT - THE MOCKINGJAY
🧠━━━━━━━━━━━━━━━━━━━━━━━━━━━━━🧠`

// Render lays out notes as a plain text document, one entry per note in the
// given order. The output depends on nothing but notes.
func Render(notes []Note) string {
	var b strings.Builder
	b.WriteString(exportBanner)
	fmt.Fprintf(&b, "\nNotes: %d\n", len(notes))

	if len(notes) == 0 {
		b.WriteString("\n(no notes)\n")
		return b.String()
	}

	for i, n := range notes {
		tagList := make([]string, len(n.Tags))
		for j, t := range n.Tags {
			tagList[j] = "#" + t
		}
		fmt.Fprintf(&b, "\n%d. [%d] %s\n", i+1, n.ID, n.CreatedAt.Format(TimeFormat))
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(tagList, ", "))
		b.WriteString(n.Text)
		b.WriteString("\n")
	}
	return b.String()
}

type yamlExport struct {
	Count int    `yaml:"count"`
	Notes []Note `yaml:"notes"`
}

// RenderYAML is the structured counterpart of Render.
func RenderYAML(notes []Note) ([]byte, error) {
	if notes == nil {
		notes = []Note{}
	}
	out, err := yaml.Marshal(yamlExport{Count: len(notes), Notes: notes})
	if err != nil {
		return nil, errors.Wrap(err, "yaml.Marshal")
	}
	return out, nil
}

// RenderFormat dispatches on format, defaulting to text.
func RenderFormat(notes []Note, format string) ([]byte, error) {
	switch format {
	case FormatYAML:
		return RenderYAML(notes)
	case "", FormatText:
		return []byte(Render(notes)), nil
	default:
		return nil, &ValidationError{Field: "format", Reason: fmt.Sprintf("unknown export format %q", format)}
	}
}

// FileName names an export generated at at.
func FileName(at time.Time, format string) string {
	ext := "txt"
	if format == FormatYAML {
		ext = "yaml"
	}
	stamp := strings.NewReplacer(" ", "_", ":", "-").Replace(at.Format(TimeFormat))
	return fmt.Sprintf("brain_vault_notes_%s.%s", stamp, ext)
}

// Export renders every note of the user in the given format.
func (s *Store) Export(ctx context.Context, userID int64, format string) ([]byte, error) {
	return RenderFormat(s.List(ctx, userID), format)
}
