package formdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/types"
)

func testFieldSet() map[string]pdfform.Field {
	return map[string]pdfform.Field{
		"summary":    {Name: "summary", Type: pdfform.FieldTypeText, MaxLen: 10},
		"signed_off": {Name: "signed_off", Type: pdfform.FieldTypeCheckbox, ExportValue: "Yes"},
		"mood":       {Name: "mood", Type: pdfform.FieldTypeChoice, Options: []string{"great", "fine", "rough"}},
		"stamp":      {Name: "stamp", Type: pdfform.FieldTypeUnknown},
	}
}

func TestFromJSONAcceptsUnionKinds(t *testing.T) {
	m, err := FromJSON([]byte(`{"a":"text","b":true,"c":["x","y"]}`))
	require.NoError(t, err)

	assert.Equal(t, String("text"), m["a"])
	assert.Equal(t, Bool(true), m["b"])
	assert.Equal(t, List([]string{"x", "y"}), m["c"])
}

func TestFromJSONRejectsOtherKinds(t *testing.T) {
	for _, doc := range []string{`{"a":5}`, `{"a":{"x":1}}`, `{"a":[1,2]}`} {
		_, err := FromJSON([]byte(doc))
		require.Error(t, err, doc)
		assert.True(t, types.IsValidation(err), doc)
	}
}

func TestValidate(t *testing.T) {
	fields := testFieldSet()

	tests := []struct {
		name    string
		m       Map
		wantErr string
	}{
		{name: "valid values", m: Map{
			"summary":    String("hi"),
			"signed_off": String("Yes"),
			"mood":       String("fine"),
			"notes":      String("aux key"),
		}},
		{name: "unchecked checkbox", m: Map{"signed_off": String("")}},
		{name: "boolean checkbox", m: Map{"signed_off": Bool(true)}},
		{name: "unknown key", m: Map{"bogus": String("x")}, wantErr: "unknown form field"},
		{name: "text over max length", m: Map{"summary": String("12345678901")}, wantErr: "max length"},
		{name: "wrong checkbox literal", m: Map{"signed_off": String("true")}, wantErr: "export value"},
		{name: "choice outside options", m: Map{"mood": String("angry")}, wantErr: "no option"},
		{name: "choice list outside options", m: Map{"mood": List([]string{"great", "angry"})}, wantErr: "no option"},
		{name: "write to unsupported field", m: Map{"stamp": String("x")}, wantErr: "unsupported type"},
		{name: "aux key wrong kind", m: Map{"notes": Bool(true)}, wantErr: "must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate(fields)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, types.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResetForReplication(t *testing.T) {
	m := Map{
		"summary":         String("carried over"),
		KeyEmotionalState: String("wobbly"),
		KeyDate:           String("2020-01-01"),
	}

	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	out := m.ResetForReplication(now)

	assert.Equal(t, String("carried over"), out["summary"])
	assert.NotContains(t, out, KeyEmotionalState)
	assert.Equal(t, String("2026-08-31"), out[KeyDate])

	// Source map is untouched.
	assert.Equal(t, String("wobbly"), m[KeyEmotionalState])
}

func TestJSONRoundTrip(t *testing.T) {
	m := Map{
		"a": String("x"),
		"b": Bool(false),
		"c": List([]string{"one"}),
	}

	b, err := m.JSON()
	require.NoError(t, err)

	back, err := FromJSON(b)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}
