package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextPlainPassthrough(t *testing.T) {
	text, err := ExtractText("notes.txt", []byte("plain text stays as is"))
	assert.NoError(t, err)
	assert.Equal(t, "plain text stays as is", text)
}

func TestExtractTextMarkdown(t *testing.T) {
	md := []byte("# Heading\n\nFirst paragraph with **bold** text.\n\n- item one\n- item two\n")

	text, err := ExtractText("notes.md", md)
	assert.NoError(t, err)

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First paragraph with bold text.")
	assert.Contains(t, text, "item one")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
	// Block elements keep paragraph breaks for the unitizer.
	assert.Contains(t, text, "Heading\n\n")
}

func TestExtractTextUnknownExtension(t *testing.T) {
	text, err := ExtractText("data.csv", []byte("a,b,c"))
	assert.NoError(t, err)
	assert.Equal(t, "a,b,c", text)
}

func TestExtractTextInvalidPDF(t *testing.T) {
	_, err := ExtractText("broken.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
