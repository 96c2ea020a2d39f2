package overlay

import (
	"fmt"
	"html"
	"strings"
)

// HTML renders the overlay as absolutely positioned form controls for a
// browser client, matching the raster underneath pixel for pixel.
func (o *Overlay) HTML() string {
	var b strings.Builder

	fmt.Fprintf(&b,
		`<div class="pdf-overlay" style="position:relative;width:%dpx;height:%dpx">`+"\n",
		o.surface.WidthPx, o.surface.HeightPx)

	for _, el := range o.elements {
		writeElement(&b, el)
	}

	b.WriteString("</div>\n")
	return b.String()
}

func writeElement(b *strings.Builder, el *Element) {
	name := html.EscapeString(el.Field.Name)
	pos := fmt.Sprintf("position:absolute;left:%.1fpx;top:%.1fpx;width:%.1fpx;height:%.1fpx",
		el.Left, el.Top, el.Width, el.Height)

	disabled := ""
	if el.ReadOnly {
		disabled = " disabled"
	}

	switch el.Kind {
	case ElementInput:
		maxlen := ""
		if el.Field.MaxLen > 0 {
			maxlen = fmt.Sprintf(` maxlength="%d"`, el.Field.MaxLen)
		}
		fmt.Fprintf(b, `<input type="text" name=%q value=%q style=%q%s%s>`+"\n",
			name, html.EscapeString(el.Value), pos, maxlen, disabled)

	case ElementCheckbox:
		checked := ""
		if el.Checked {
			checked = " checked"
		}
		fmt.Fprintf(b, `<input type="checkbox" name=%q value=%q style=%q%s%s>`+"\n",
			name, html.EscapeString(el.Field.ExportValue), pos, checked, disabled)

	case ElementSelect:
		fmt.Fprintf(b, `<select name=%q style=%q%s>`+"\n", name, pos, disabled)
		fmt.Fprintf(b, `<option value=""%s></option>`+"\n", selected(el.Value == ""))
		for _, opt := range el.Field.Options {
			fmt.Fprintf(b, `<option value=%q%s>%s</option>`+"\n",
				html.EscapeString(opt), selected(el.Value == opt), html.EscapeString(opt))
		}
		b.WriteString("</select>\n")

	case ElementButton:
		fmt.Fprintf(b, `<button type="button" name=%q style=%q%s>%s</button>`+"\n",
			name, pos, disabled, name)

	default:
		// Unsupported fields render as a visible hatched placeholder,
		// never dropped silently.
		fmt.Fprintf(b, `<div class="field-unsupported" title="unsupported field: %s" style=%q>%s</div>`+"\n",
			name, pos+";outline:1px dashed #999;opacity:.6", name)
	}
}

func selected(is bool) string {
	if is {
		return " selected"
	}
	return ""
}
