package pdfform

// FieldType classifies an interactive form field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeChoice   FieldType = "choice"
	FieldTypeButton   FieldType = "button"
	FieldTypeUnknown  FieldType = "unknown"
)

// UnnamedField is the sentinel name for widgets that carry no /T entry.
// Downstream code keys form values by name, so two unnamed fields on one
// template silently merge; templates must name every field they care about.
const UnnamedField = "unnamed"

// Rect is a rectangle in PDF user space. PDF uses a bottom-left origin, so
// LLy < URy and URy is the TOP edge of the field on the page.
type Rect struct {
	LLx float64 `json:"llx"`
	LLy float64 `json:"lly"`
	URx float64 `json:"urx"`
	URy float64 `json:"ury"`
}

func (r Rect) Width() float64  { return r.URx - r.LLx }
func (r Rect) Height() float64 { return r.URy - r.LLy }

// Field describes one widget annotation. Derived fresh on every parse and
// never cached across loads.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Value       string    `json:"value"`
	Page        int       `json:"page"`
	Rect        Rect      `json:"rect"`
	Options     []string  `json:"options,omitempty"`
	ExportValue string    `json:"export_value,omitempty"`
	MaxLen      int       `json:"max_len,omitempty"`
	Required    bool      `json:"required,omitempty"`
}

// Page holds the fields of one page plus its nominal user-space size,
// which the overlay renderer needs for its scale/flip transform.
type Page struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Fields []Field `json:"fields"`
}

// Document is the parse result: pages in document order, fields in
// annotation order within each page. Parsing identical bytes yields an
// element-wise identical Document.
type Document struct {
	Pages []Page `json:"pages"`
}

// Fields returns all fields flattened in page-then-annotation order.
func (d *Document) Fields() []Field {
	var out []Field
	for _, p := range d.Pages {
		out = append(out, p.Fields...)
	}
	return out
}

// FieldSet indexes fields by name. Later duplicates win, mirroring how a
// name collision behaves in the value map.
func (d *Document) FieldSet() map[string]Field {
	set := make(map[string]Field)
	for _, f := range d.Fields() {
		set[f.Name] = f
	}
	return set
}
