package orchestrator

import (
	"fmt"
	"strings"
)

// Attachment describes one file or resource attached to a request. All
// fields are optional; rendering degrades per-field instead of failing on
// an incomplete entry.
type Attachment struct {
	Name     string `json:"name,omitempty"`
	FileName string `json:"filename,omitempty"`
	Title    string `json:"title,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Size     int64  `json:"size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// displayName resolves the attachment's label: name, filename, title, then
// the literal "attachment".
func (a Attachment) displayName() string {
	for _, v := range []string{a.Name, a.FileName, a.Title} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "attachment"
}

// location resolves the first present of file path, path, url, uri.
func (a Attachment) location() string {
	for _, v := range []string{a.FilePath, a.Path, a.URL, a.URI} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// AppendAttachments appends a human-readable listing of the attachments to
// the message, one line per attachment. An empty list returns the message
// unchanged with appended=false.
func AppendAttachments(message string, attachments []Attachment) (string, bool) {
	if len(attachments) == 0 {
		return message, false
	}
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\nAttachments:")
	for _, a := range attachments {
		b.WriteString("\n- ")
		b.WriteString(a.displayName())
		if a.Kind != "" {
			b.WriteString(" [" + a.Kind + "]")
		}
		if a.Size > 0 {
			b.WriteString(" (" + humanSize(a.Size) + ")")
		}
		if loc := a.location(); loc != "" {
			b.WriteString(" " + loc)
		}
	}
	return b.String(), true
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// humanSize renders a byte count in human units: one decimal place under
// 10 units, whole numbers above.
func humanSize(n int64) string {
	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	if v < 10 && unit > 0 {
		return fmt.Sprintf("%.1f %s", v, sizeUnits[unit])
	}
	return fmt.Sprintf("%.0f %s", v, sizeUnits[unit])
}
