package overlay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/types"
)

func testPage() pdfform.Page {
	return pdfform.Page{
		Number: 1,
		Width:  612,
		Height: 792,
		Fields: []pdfform.Field{
			{Name: "summary", Type: pdfform.FieldTypeText, MaxLen: 10,
				Rect: pdfform.Rect{LLx: 0, LLy: 700, URx: 612, URy: 720}},
			{Name: "signed_off", Type: pdfform.FieldTypeCheckbox, ExportValue: "Yes",
				Rect: pdfform.Rect{LLx: 72, LLy: 600, URx: 90, URy: 618}},
			{Name: "mood", Type: pdfform.FieldTypeChoice, Options: []string{"great", "fine", "rough"}, Value: "fine",
				Rect: pdfform.Rect{LLx: 72, LLy: 500, URx: 272, URy: 520}},
			{Name: "stamp", Type: pdfform.FieldTypeUnknown,
				Rect: pdfform.Rect{LLx: 400, LLy: 40, URx: 500, URy: 90}},
		},
	}
}

func TestBuildScalesAndFlipsUniformly(t *testing.T) {
	// Raster at exactly 2x the page's nominal width.
	surface := Surface{WidthPx: 1224, HeightPx: 1584}

	ov, err := Build(surface, testPage(), formdata.Map{}, nil, false)
	require.NoError(t, err)

	full, ok := ov.Element("summary")
	require.True(t, ok)

	// A field spanning the full page width must span the full raster width.
	assert.Equal(t, 0.0, full.Left)
	assert.Equal(t, 1224.0, full.Width)

	// Vertical flip: PDF top edge URy=720 lands at (792-720)*2 from the
	// raster's top, and the same 2x factor applies to the height.
	assert.Equal(t, 144.0, full.Top)
	assert.Equal(t, 40.0, full.Height)
}

func TestBuildFallsBackToDescriptorDefaults(t *testing.T) {
	values := formdata.Map{"summary": formdata.String("edited")}

	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), values, nil, false)
	require.NoError(t, err)

	edited, _ := ov.Element("summary")
	assert.Equal(t, "edited", edited.Value)

	// "mood" is absent from the value map: the parsed default shows.
	dflt, _ := ov.Element("mood")
	assert.Equal(t, "fine", dflt.Value)
}

func TestToggleEmitsExportValue(t *testing.T) {
	var got []formdata.Value
	onChange := func(name string, v formdata.Value) {
		assert.Equal(t, "signed_off", name)
		got = append(got, v)
	}

	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), formdata.Map{}, onChange, false)
	require.NoError(t, err)

	require.NoError(t, ov.Toggle("signed_off", true))
	require.NoError(t, ov.Toggle("signed_off", true)) // no change, no callback
	require.NoError(t, ov.Toggle("signed_off", false))

	require.Len(t, got, 2, "exactly one callback per committed change")
	assert.Equal(t, formdata.String("Yes"), got[0], "checked commits the export value, not true")
	assert.Equal(t, formdata.String(""), got[1])
}

func TestSetTextCommitsOncePerChange(t *testing.T) {
	count := 0
	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), formdata.Map{},
		func(string, formdata.Value) { count++ }, false)
	require.NoError(t, err)

	require.NoError(t, ov.SetText("summary", "hi"))
	require.NoError(t, ov.SetText("summary", "hi"))
	assert.Equal(t, 1, count)

	err = ov.SetText("summary", "12345678901")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err), "max length enforced")
	assert.Equal(t, 1, count)
}

func TestSelectValidatesOptions(t *testing.T) {
	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), formdata.Map{}, nil, false)
	require.NoError(t, err)

	require.NoError(t, ov.Select("mood", "rough"))
	require.NoError(t, ov.Select("mood", "")) // explicit empty option

	err = ov.Select("mood", "angry")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestReadOnlyRendersValuesButRejectsInteraction(t *testing.T) {
	values := formdata.Map{"summary": formdata.String("kept")}

	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), values, nil, true)
	require.NoError(t, err)

	el, _ := ov.Element("summary")
	assert.Equal(t, "kept", el.Value, "read-only still shows current values")

	err = ov.SetText("summary", "nope")
	require.Error(t, err)
	assert.True(t, types.IsForbidden(err))
}

func TestUnsupportedFieldIsVisibleButInert(t *testing.T) {
	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), formdata.Map{}, nil, false)
	require.NoError(t, err)

	el, ok := ov.Element("stamp")
	require.True(t, ok, "unsupported fields are never dropped")
	assert.Equal(t, ElementPlaceholder, el.Kind)

	err = ov.SetText("stamp", "x")
	require.Error(t, err)
	assert.True(t, types.IsForbidden(err))

	assert.Contains(t, ov.HTML(), "field-unsupported")
}

func TestRendererTearsDownPriorOverlay(t *testing.T) {
	r := NewRenderer()
	surface := Surface{WidthPx: 612, HeightPx: 792}

	first, err := r.Render(surface, testPage(), formdata.Map{}, nil, false)
	require.NoError(t, err)

	second, err := r.Render(surface, testPage(), formdata.Map{}, nil, false)
	require.NoError(t, err)

	assert.Empty(t, first.Elements(), "prior overlay is fully torn down")
	err = first.SetText("summary", "ghost")
	require.Error(t, err, "torn-down overlay rejects edits")

	assert.Len(t, second.Elements(), 4)
}

func TestHTMLMarksStateAndEscapes(t *testing.T) {
	values := formdata.Map{"summary": formdata.String(`<b>"quoted"</b>`)}

	ov, err := Build(Surface{WidthPx: 612, HeightPx: 792}, testPage(), values, nil, true)
	require.NoError(t, err)

	out := ov.HTML()
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, strings.ToLower(out), `<select`)
}
