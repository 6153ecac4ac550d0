package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayWidth(t *testing.T) {
	assert.EqualValues(t, 0, DisplayWidth(""))
	assert.EqualValues(t, 3, DisplayWidth("abc"))
	assert.EqualValues(t, 4, DisplayWidth("世界"))
}

func TestClusters(t *testing.T) {
	clusters := Clusters("a世")
	assert.Len(t, clusters, 2)
	assert.EqualValues(t, "a", clusters[0].Str)
	assert.EqualValues(t, 1, clusters[0].Width)
	assert.EqualValues(t, "世", clusters[1].Str)
	assert.EqualValues(t, 2, clusters[1].Width)
}

func TestFitCell_Pads(t *testing.T) {
	assert.EqualValues(t, "ab  ", FitCell("ab", 4))
	assert.EqualValues(t, "abcd", FitCell("abcd", 4))
	assert.EqualValues(t, "", FitCell("ab", 0))
}

func TestFitCell_TruncatesWithEllipsis(t *testing.T) {
	assert.EqualValues(t, "abc…", FitCell("abcdef", 4))
	assert.EqualValues(t, 4, DisplayWidth(FitCell("abcdef", 4)))

	// A wide rune is never split; the gap is padded instead.
	fitted := FitCell("世界世界", 4)
	assert.EqualValues(t, 4, DisplayWidth(fitted))
	assert.EqualValues(t, "世… ", fitted)
}

func TestPadLeft(t *testing.T) {
	assert.EqualValues(t, "   7", PadLeft("7", 4))
	assert.EqualValues(t, "1234", PadLeft("1234", 4))
	assert.EqualValues(t, "…ef", PadLeft("abcdef", 3))
	assert.EqualValues(t, "", PadLeft("x", 0))
}
