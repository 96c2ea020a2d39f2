// Package overlay positions interactive form controls over a rendered PDF
// page raster and routes committed value changes back to a value store.
package overlay

import (
	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/types"
)

// Surface describes the raster the PDF page was rendered to, in pixels.
type Surface struct {
	WidthPx  int
	HeightPx int
}

// ElementKind classifies the control rendered for a field.
type ElementKind string

const (
	ElementInput       ElementKind = "input"
	ElementCheckbox    ElementKind = "checkbox"
	ElementSelect      ElementKind = "select"
	ElementButton      ElementKind = "button"
	ElementPlaceholder ElementKind = "placeholder"
)

// ChangeFunc receives each committed value change, exactly once per change.
type ChangeFunc func(name string, value formdata.Value)

// Element is one positioned control. Coordinates are raster pixels with a
// top-left origin, already flipped and scaled from PDF user space.
type Element struct {
	Field pdfform.Field
	Kind  ElementKind

	Left   float64
	Top    float64
	Width  float64
	Height float64

	Value    string
	Checked  bool
	ReadOnly bool
}

// Overlay is one live set of controls bound to one surface.
type Overlay struct {
	surface  Surface
	page     pdfform.Page
	elements []*Element
	byName   map[string]*Element
	onChange ChangeFunc
	readOnly bool
	torn     bool
}

// Build constructs the overlay for one page. The scale factor is derived
// from the raster width and applied uniformly to BOTH axes; the vertical
// axis is flipped because PDF user space has a bottom-left origin while the
// raster has a top-left one. A per-axis scale would desync the controls
// from the glyphs underneath.
func Build(surface Surface, page pdfform.Page, values formdata.Map, onChange ChangeFunc, readOnly bool) (*Overlay, error) {
	if surface.WidthPx <= 0 || surface.HeightPx <= 0 {
		return nil, types.Validation("surface must have positive pixel dimensions")
	}
	if page.Width <= 0 || page.Height <= 0 {
		return nil, types.Validation("page %d has no usable geometry", page.Number)
	}

	scale := float64(surface.WidthPx) / page.Width

	ov := &Overlay{
		surface:  surface,
		page:     page,
		byName:   make(map[string]*Element),
		onChange: onChange,
		readOnly: readOnly,
	}

	for _, f := range page.Fields {
		el := &Element{
			Field:    f,
			Kind:     kindFor(f.Type),
			Left:     f.Rect.LLx * scale,
			Top:      (page.Height - f.Rect.URy) * scale,
			Width:    f.Rect.Width() * scale,
			Height:   f.Rect.Height() * scale,
			ReadOnly: readOnly || f.Type == pdfform.FieldTypeUnknown,
		}

		// Sparse value map: unset fields fall back to the parsed default.
		if v, ok := values[f.Name]; ok {
			el.Value = stringValue(v, f)
		} else {
			el.Value = f.Value
		}
		if f.Type == pdfform.FieldTypeCheckbox {
			el.Checked = el.Value != ""
		}

		ov.elements = append(ov.elements, el)
		ov.byName[f.Name] = el
	}

	return ov, nil
}

// Elements returns the controls in field order.
func (o *Overlay) Elements() []*Element {
	return o.elements
}

// Element returns the control for a field name.
func (o *Overlay) Element(name string) (*Element, bool) {
	el, ok := o.byName[name]
	return el, ok
}

// ReadOnly reports whether the overlay rejects all interaction.
func (o *Overlay) ReadOnly() bool {
	return o.readOnly
}

// SetText commits a text field edit. The final value on blur is what the
// caller passes here; intermediate keystrokes never reach the overlay.
func (o *Overlay) SetText(name, value string) error {
	el, err := o.writable(name)
	if err != nil {
		return err
	}
	if el.Kind != ElementInput {
		return types.Validation("field %q is not a text field", name)
	}
	if el.Field.MaxLen > 0 && len([]rune(value)) > el.Field.MaxLen {
		return types.Validation("field %q exceeds max length %d", name, el.Field.MaxLen)
	}
	if el.Value == value {
		return nil
	}
	el.Value = value
	o.commit(name, formdata.String(value))
	return nil
}

// Toggle commits a checkbox state. Checked emits the field's export value,
// never a literal "true", so the value round-trips into the PDF; unchecked
// emits "".
func (o *Overlay) Toggle(name string, checked bool) error {
	el, err := o.writable(name)
	if err != nil {
		return err
	}
	if el.Kind != ElementCheckbox {
		return types.Validation("field %q is not a checkbox", name)
	}
	if el.Checked == checked {
		return nil
	}
	el.Checked = checked
	if checked {
		el.Value = el.Field.ExportValue
	} else {
		el.Value = ""
	}
	o.commit(name, formdata.String(el.Value))
	return nil
}

// Select commits a choice selection. "" selects the explicit empty option.
func (o *Overlay) Select(name, option string) error {
	el, err := o.writable(name)
	if err != nil {
		return err
	}
	if el.Kind != ElementSelect {
		return types.Validation("field %q is not a choice field", name)
	}
	if option != "" && !hasOption(el.Field.Options, option) {
		return types.Validation("field %q has no option %q", name, option)
	}
	if el.Value == option {
		return nil
	}
	el.Value = option
	o.commit(name, formdata.String(option))
	return nil
}

// Click activates a button field. Buttons carry an activation signal, not
// data: nothing is committed to the value store.
func (o *Overlay) Click(name string) error {
	el, err := o.writable(name)
	if err != nil {
		return err
	}
	if el.Kind != ElementButton {
		return types.Validation("field %q is not a button", name)
	}
	return nil
}

// Teardown removes every element. A torn-down overlay rejects all further
// interaction; the renderer calls this before building a replacement so
// ghost controls cannot accumulate across repeated loads.
func (o *Overlay) Teardown() {
	o.elements = nil
	o.byName = map[string]*Element{}
	o.torn = true
}

func (o *Overlay) writable(name string) (*Element, error) {
	if o.torn {
		return nil, types.Validation("overlay has been torn down")
	}
	if o.readOnly {
		return nil, types.Forbidden("overlay is read-only")
	}
	el, ok := o.byName[name]
	if !ok {
		return nil, types.NotFound("no overlay element for field %q", name)
	}
	if el.Kind == ElementPlaceholder {
		return nil, types.Forbidden("field %q has an unsupported type", name)
	}
	return el, nil
}

func (o *Overlay) commit(name string, v formdata.Value) {
	if o.onChange != nil {
		o.onChange(name, v)
	}
}

// Renderer owns at most one live overlay per surface. Re-rendering fully
// tears down the prior overlay first.
type Renderer struct {
	current *Overlay
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render replaces the current overlay with a fresh one for the surface.
func (r *Renderer) Render(surface Surface, page pdfform.Page, values formdata.Map, onChange ChangeFunc, readOnly bool) (*Overlay, error) {
	if r.current != nil {
		r.current.Teardown()
		r.current = nil
	}
	ov, err := Build(surface, page, values, onChange, readOnly)
	if err != nil {
		return nil, err
	}
	r.current = ov
	return ov, nil
}

func kindFor(t pdfform.FieldType) ElementKind {
	switch t {
	case pdfform.FieldTypeText:
		return ElementInput
	case pdfform.FieldTypeCheckbox:
		return ElementCheckbox
	case pdfform.FieldTypeChoice:
		return ElementSelect
	case pdfform.FieldTypeButton:
		return ElementButton
	}
	// Unsupported fields stay visible so the user knows the field exists.
	return ElementPlaceholder
}

func stringValue(v formdata.Value, f pdfform.Field) string {
	switch v.Kind {
	case formdata.KindString:
		return v.Str
	case formdata.KindBool:
		if v.Bool {
			if f.ExportValue != "" {
				return f.ExportValue
			}
			return "Yes"
		}
		return ""
	case formdata.KindStringList:
		if len(v.List) > 0 {
			return v.List[0]
		}
	}
	return ""
}

func hasOption(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
