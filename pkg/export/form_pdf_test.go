package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormPDFRendererRequiresTitle(t *testing.T) {
	renderer := NewFormPDFRenderer()

	_, err := renderer.Render(Document{})
	assert.Error(t, err)
}

func TestFormPDFRendererRender(t *testing.T) {
	renderer := NewFormPDFRenderer()

	payload, err := renderer.Render(Document{
		Title: "Formular",
		Sections: []Section{
			{Fields: []Field{{Label: "Stadt", Value: "Köln"}, {Label: "Objektbezeichnung", Value: "-"}}},
			{Heading: "Flächen nach DIN 277", Fields: []Field{{Label: "NUF", Value: "120,50"}}},
		},
	})
	require.NoError(t, err)
	require.Greater(t, len(payload), 4)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
