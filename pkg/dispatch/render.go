package dispatch

import (
	"html"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// RenderRecord formats a compiled record as HTML, one "label: <b>value</b>" line per field.
// Labels and values are escaped.
func RenderRecord(fields []domain.Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(html.EscapeString(f.Label))
		b.WriteString(": <b>")
		b.WriteString(html.EscapeString(f.Value))
		b.WriteString("</b>")
	}
	return b.String()
}

// Render turns engine actions into outbound messages.
// replyTo addresses the originating user; admin receives forwarded records.
func Render(actions []domain.Action, replyTo, admin string) []Outbound {
	out := make([]Outbound, 0, len(actions))
	for _, a := range actions {
		switch a.Kind {
		case domain.ActionPrompt:
			out = append(out, Outbound{
				Kind:    a.Kind,
				To:      replyTo,
				Text:    html.EscapeString(a.Text),
				Buttons: a.Options,
			})

		case domain.ActionSummary:
			text := RenderRecord(a.Fields)
			if a.Text != "" {
				text = html.EscapeString(a.Text) + "\n\n" + text
			}
			out = append(out, Outbound{
				Kind:          a.Kind,
				To:            replyTo,
				Text:          text,
				RemoveButtons: true,
			})

		case domain.ActionForwardToAdmin:
			out = append(out, Outbound{
				Kind: a.Kind,
				To:   admin,
				Text: RenderRecord(a.Fields),
			})

		case domain.ActionCancellationAck:
			out = append(out, Outbound{
				Kind:          a.Kind,
				To:            replyTo,
				Text:          html.EscapeString(a.Text),
				RemoveButtons: true,
			})
		}
	}
	return out
}
