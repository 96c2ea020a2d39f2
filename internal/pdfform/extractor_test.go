package pdfform

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairworks/tpsflow/internal/types"
)

// buildPDF assembles a minimal but well-formed PDF from body objects,
// computing the xref table from the actual byte offsets.
func buildPDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	return buf.Bytes()
}

// formPDF returns a one-page PDF with a text field, a checkbox, a choice
// field and an unnamed pushbutton, in that annotation order.
func formPDF() []byte {
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R 5 0 R 6 0 R 7 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Annots [4 0 R 5 0 R 6 0 R 7 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (summary) /V (hello) /MaxLen 40 /Ff 2 /Rect [0 700 612 720] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (signed_off) /V /Off /AS /Off /AP << /N << /Yes null /Off null >> >> /Rect [72 600 90 618] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Ch /T (mood) /V (fine) /Opt [(great) (fine) (rough)] /Rect [72 500 272 520] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /Ff 65536 /Rect [500 40 580 60] /P 3 0 R >>",
	})
}

// barePDF returns a valid one-page PDF with no annotation layer at all.
func barePDF() []byte {
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>",
	})
}

func TestParseExtractsFieldsInAnnotationOrder(t *testing.T) {
	doc, err := Parse(formPDF())
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	page := doc.Pages[0]
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 612.0, page.Width)
	assert.Equal(t, 792.0, page.Height)
	require.Len(t, page.Fields, 4)

	text := page.Fields[0]
	assert.Equal(t, "summary", text.Name)
	assert.Equal(t, FieldTypeText, text.Type)
	assert.Equal(t, "hello", text.Value)
	assert.Equal(t, 40, text.MaxLen)
	assert.True(t, text.Required)
	assert.Equal(t, Rect{LLx: 0, LLy: 700, URx: 612, URy: 720}, text.Rect)

	check := page.Fields[1]
	assert.Equal(t, "signed_off", check.Name)
	assert.Equal(t, FieldTypeCheckbox, check.Type)
	assert.Equal(t, "", check.Value, "Off state reads as unset")
	assert.Equal(t, "Yes", check.ExportValue)

	choice := page.Fields[2]
	assert.Equal(t, "mood", choice.Name)
	assert.Equal(t, FieldTypeChoice, choice.Type)
	assert.Equal(t, "fine", choice.Value)
	assert.Equal(t, []string{"great", "fine", "rough"}, choice.Options)

	button := page.Fields[3]
	assert.Equal(t, UnnamedField, button.Name)
	assert.Equal(t, FieldTypeButton, button.Type)
}

func TestParseIsIdempotent(t *testing.T) {
	b := formPDF()

	first, err := Parse(b)
	require.NoError(t, err)
	second, err := Parse(b)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical bytes must yield element-wise identical descriptors")
}

func TestParseWithoutAnnotationsYieldsEmptyFields(t *testing.T) {
	doc, err := Parse(barePDF())
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Empty(t, doc.Pages[0].Fields)
	assert.Equal(t, 595.0, doc.Pages[0].Width)
}

func TestParseRejectsMalformedBytes(t *testing.T) {
	_, err := Parse([]byte("this is not a pdf"))
	require.Error(t, err)
	assert.True(t, types.IsParse(err))
}

// deepPagePDF nests the single leaf page under depth levels of
// intermediate Pages nodes.
func deepPagePDF(depth int) []byte {
	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>"}
	for i := 0; i < depth; i++ {
		objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 >>", i+3))
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] >>", depth+1))
	return buildPDF(objects)
}

func TestParseCapsPageTreeNesting(t *testing.T) {
	doc, err := Parse(deepPagePDF(10))
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	_, err = Parse(deepPagePDF(80))
	require.Error(t, err)
	assert.True(t, types.IsParse(err))
}

func TestParseSurvivesParentCycle(t *testing.T) {
	// Objects 4 and 5 form a Parent cycle; the widget carries no /T
	// anywhere along it, so the name falls back to the sentinel.
	b := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Annots [4 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /Parent 5 0 R /Rect [0 0 100 20] /P 3 0 R >>",
		"<< /Parent 4 0 R >>",
	})

	doc, err := Parse(b)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Fields, 1)
	assert.Equal(t, UnnamedField, doc.Pages[0].Fields[0].Name)
}

func TestFieldSetCollapsesDuplicateNames(t *testing.T) {
	doc := &Document{Pages: []Page{{
		Number: 1,
		Fields: []Field{
			{Name: UnnamedField, Type: FieldTypeText},
			{Name: UnnamedField, Type: FieldTypeCheckbox},
		},
	}}}

	set := doc.FieldSet()
	require.Len(t, set, 1)
	assert.Equal(t, FieldTypeCheckbox, set[UnnamedField].Type)
}
