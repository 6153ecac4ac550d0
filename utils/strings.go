package utils

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Cluster is one grapheme cluster and its width in terminal cells.
type Cluster struct {
	Str   string
	Width int
}

// Clusters splits a string into grapheme clusters. Cell rendering works on
// clusters rather than runes so that combining marks and wide characters
// keep the column grid aligned.
func Clusters(s string) []Cluster {
	clusters := make([]Cluster, 0, len(s))
	state := -1
	var cluster string
	var boundaries int
	for len(s) > 0 {
		cluster, s, boundaries, state = uniseg.StepString(s, state)
		clusters = append(clusters, Cluster{Str: cluster, Width: boundaries >> uniseg.ShiftWidth})
	}
	return clusters
}

// DisplayWidth is the width of a string in terminal cells.
func DisplayWidth(s string) int {
	return uniseg.StringWidth(s)
}

// FitCell fits a string into exactly width cells, truncating with an
// ellipsis when it is too long and padding with spaces when it is too
// short. Truncation never splits a grapheme cluster.
func FitCell(s string, width int) string {
	if width <= 0 {
		return ""
	}

	w := DisplayWidth(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}

	var sb strings.Builder
	used := 0
	for _, cl := range Clusters(s) {
		// Leave one cell for the ellipsis.
		if used+cl.Width > width-1 {
			break
		}
		sb.WriteString(cl.Str)
		used += cl.Width
	}
	sb.WriteString("…")
	used++
	if used < width {
		sb.WriteString(strings.Repeat(" ", width-used))
	}
	return sb.String()
}

// PadLeft right-aligns a string in width cells, truncating from the left
// when it is too long.
func PadLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}

	w := DisplayWidth(s)
	if w == width {
		return s
	}
	if w < width {
		return strings.Repeat(" ", width-w) + s
	}

	clusters := Clusters(s)
	used := 0
	start := len(clusters)
	for i := len(clusters) - 1; i >= 0; i-- {
		if used+clusters[i].Width > width-1 {
			break
		}
		used += clusters[i].Width
		start = i
	}
	var sb strings.Builder
	sb.WriteString("…")
	used++
	for _, cl := range clusters[start:] {
		sb.WriteString(cl.Str)
	}
	if used < width {
		return strings.Repeat(" ", width-used) + sb.String()
	}
	return sb.String()
}
