package pdfform

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pairworks/tpsflow/internal/types"
)

// Parse reads raw PDF bytes and extracts the widget annotations of every
// page into Field descriptors. A PDF without an annotation layer yields a
// Document with empty field lists, not an error; bytes that are not a
// well-formed PDF fail with a parse error and no partial result.
//
// Parse holds no state between calls. Each load parses fresh so that field
// lists can never leak between unrelated requests.
func Parse(b []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(b), conf)
	if err != nil {
		return nil, types.Parse("not a well-formed PDF: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, types.Parse("unreadable page tree: %v", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, types.Parse("unreadable catalog: %v", err)
	}
	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return nil, types.Parse("catalog has no page tree")
	}

	doc := &Document{}
	pageNo := 0
	if err := walkPages(ctx, pagesObj, nil, &pageNo, doc, 0); err != nil {
		return nil, err
	}
	return doc, nil
}

// Relaxed validation admits malformed trees, including self-referencing
// Kids and Parent entries. Both walks are depth-capped so a cycle fails
// with a parse error instead of exhausting the stack.
const (
	maxPageTreeDepth = 64
	maxParentDepth   = 32
)

// walkPages descends the page tree in document order, carrying the
// inherited MediaBox down to leaf pages.
func walkPages(ctx *model.Context, nodeObj pdftypes.Object, inheritedBox *Rect, pageNo *int, doc *Document, depth int) error {
	if depth > maxPageTreeDepth {
		return types.Parse("page tree nesting exceeds %d levels", maxPageTreeDepth)
	}

	nodeDict, err := ctx.DereferenceDict(nodeObj)
	if err != nil || nodeDict == nil {
		return types.Parse("unreadable page tree node: %v", err)
	}

	box := inheritedBox
	if mbObj, found := nodeDict.Find("MediaBox"); found {
		if mb := parseRect(ctx, mbObj); mb != nil {
			box = mb
		}
	}

	nodeType := derefName(ctx, nodeDict, "Type")
	if nodeType == "Pages" {
		kidsObj, found := nodeDict.Find("Kids")
		if !found {
			return nil
		}
		kids, err := ctx.DereferenceArray(kidsObj)
		if err != nil {
			return types.Parse("unreadable Kids array: %v", err)
		}
		for _, kid := range kids {
			if err := walkPages(ctx, kid, box, pageNo, doc, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	// Leaf page.
	*pageNo++
	page := Page{Number: *pageNo, Width: 612, Height: 792}
	if box != nil {
		page.Width = box.Width()
		page.Height = box.Height()
	}

	if annotsObj, found := nodeDict.Find("Annots"); found {
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			return types.Parse("unreadable Annots array on page %d: %v", *pageNo, err)
		}
		for _, annotObj := range annots {
			annotDict, err := ctx.DereferenceDict(annotObj)
			if err != nil || annotDict == nil {
				continue
			}
			if derefName(ctx, annotDict, "Subtype") != "Widget" {
				continue
			}
			f := extractField(ctx, annotDict, *pageNo)
			page.Fields = append(page.Fields, f)
		}
	}

	doc.Pages = append(doc.Pages, page)
	return nil
}

// extractField derives one Field descriptor from a widget annotation,
// consulting the Parent chain for inheritable entries.
func extractField(ctx *model.Context, annotDict pdftypes.Dict, pageNo int) Field {
	f := Field{Page: pageNo, Type: FieldTypeUnknown}

	f.Name = UnnamedField
	if nameObj, found := findInherited(ctx, annotDict, "T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && name != "" {
			f.Name = name
		}
	}

	f.Type = extractFieldType(ctx, annotDict)

	if rectObj, found := annotDict.Find("Rect"); found {
		if r := parseRect(ctx, rectObj); r != nil {
			f.Rect = *r
		}
	}

	if valObj, found := findInherited(ctx, annotDict, "V"); found {
		f.Value = extractValue(ctx, valObj, f.Type)
	}

	if f.Type == FieldTypeChoice {
		f.Options = extractOptions(ctx, annotDict)
	}
	if f.Type == FieldTypeCheckbox {
		f.ExportValue = extractExportValue(ctx, annotDict)
	}

	if flagsObj, found := findInherited(ctx, annotDict, "Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			f.Required = (*flags & 2) != 0 // bit 2
		}
	}
	if maxLenObj, found := findInherited(ctx, annotDict, "MaxLen"); found {
		if maxLen, err := ctx.DereferenceInteger(maxLenObj); err == nil && maxLen != nil {
			f.MaxLen = int(*maxLen)
		}
	}

	return f
}

// extractFieldType maps the /FT entry (plus /Ff button flags) onto the
// descriptor type enum. Radio groups collapse into checkbox: their export
// value carries the round-trip semantics either way.
func extractFieldType(ctx *model.Context, fieldDict pdftypes.Dict) FieldType {
	ftObj, found := findInherited(ctx, fieldDict, "FT")
	if !found {
		return FieldTypeUnknown
	}
	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return FieldTypeUnknown
	}

	switch ftName {
	case "Tx":
		return FieldTypeText
	case "Ch":
		return FieldTypeChoice
	case "Btn":
		if flagsObj, found := findInherited(ctx, fieldDict, "Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				if (*flags & (1 << 16)) != 0 { // bit 17: pushbutton
					return FieldTypeButton
				}
			}
		}
		return FieldTypeCheckbox
	default:
		return FieldTypeUnknown
	}
}

// extractValue prefers the explicit field value and falls back to "".
func extractValue(ctx *model.Context, valObj pdftypes.Object, ft FieldType) string {
	switch ft {
	case FieldTypeCheckbox:
		if name, err := ctx.DereferenceName(valObj, model.V10, nil); err == nil {
			if name == "Off" {
				return ""
			}
			return string(name)
		}
	case FieldTypeChoice:
		if val, err := ctx.DereferenceStringOrHexLiteral(valObj, model.V10, nil); err == nil {
			return val
		}
		if arr, err := ctx.DereferenceArray(valObj); err == nil && len(arr) > 0 {
			if val, err := ctx.DereferenceStringOrHexLiteral(arr[0], model.V10, nil); err == nil {
				return val
			}
		}
	default:
		if val, err := ctx.DereferenceStringOrHexLiteral(valObj, model.V10, nil); err == nil {
			return val
		}
	}
	return ""
}

// extractOptions reads /Opt entries, which are display strings or
// [export, display] pairs.
func extractOptions(ctx *model.Context, fieldDict pdftypes.Dict) []string {
	optObj, found := findInherited(ctx, fieldDict, "Opt")
	if !found {
		return nil
	}
	optArray, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range optArray {
		if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, str)
		} else if arr, err := ctx.DereferenceArray(opt); err == nil && len(arr) >= 2 {
			if displayVal, err := ctx.DereferenceStringOrHexLiteral(arr[1], model.V10, nil); err == nil {
				options = append(options, displayVal)
			}
		}
	}
	return options
}

// extractExportValue finds a checkbox's "on" state: the non-Off key of the
// normal appearance dictionary. Defaults to Yes when no appearance exists.
func extractExportValue(ctx *model.Context, annotDict pdftypes.Dict) string {
	apObj, found := annotDict.Find("AP")
	if !found {
		return "Yes"
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return "Yes"
	}
	nObj, found := apDict.Find("N")
	if !found {
		return "Yes"
	}
	nDict, err := ctx.DereferenceDict(nObj)
	if err != nil || nDict == nil {
		return "Yes"
	}
	for state := range nDict {
		if state != "Off" {
			return state
		}
	}
	return "Yes"
}

// findInherited looks up key on the dict or an ancestor via /Parent. The
// ancestor walk is depth-capped; a cyclic Parent chain reads as absent.
func findInherited(ctx *model.Context, dict pdftypes.Dict, key string) (pdftypes.Object, bool) {
	for depth := 0; depth <= maxParentDepth; depth++ {
		if obj, found := dict.Find(key); found {
			return obj, true
		}
		parentObj, found := dict.Find("Parent")
		if !found {
			return nil, false
		}
		parentDict, err := ctx.DereferenceDict(parentObj)
		if err != nil || parentDict == nil {
			return nil, false
		}
		dict = parentDict
	}
	return nil, false
}

// parseRect reads a 4-number PDF rectangle, normalizing corner order.
func parseRect(ctx *model.Context, rectObj pdftypes.Object) *Rect {
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return nil
	}
	coords := make([]float64, 4)
	for i, coord := range rectArray {
		if f, err := ctx.DereferenceNumber(coord); err == nil {
			coords[i] = f
		}
	}
	r := &Rect{LLx: coords[0], LLy: coords[1], URx: coords[2], URy: coords[3]}
	if r.LLx > r.URx {
		r.LLx, r.URx = r.URx, r.LLx
	}
	if r.LLy > r.URy {
		r.LLy, r.URy = r.URy, r.LLy
	}
	return r
}

// derefName resolves a name entry to its string form, or "".
func derefName(ctx *model.Context, dict pdftypes.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	name, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(name)
}
