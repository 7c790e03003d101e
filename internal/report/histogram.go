// Package report aggregates benchmark outcomes into rank buckets and renders
// them as a fixed-width text bar chart.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gene-ranking-shootout/internal/domain"
)

const (
	// labelColumn fits "<top_n+1>-.." for three-digit top_n.
	labelColumn = 7
	countColumn = 4
	// labelWidth is everything on a line that is not bar.
	labelWidth = labelColumn + len(": ") + countColumn + len("  ")

	fillGlyph        = "#"
	placeholderGlyph = "."
	missingLabel     = "mssng"
)

// Histogram holds outcome counts per rank bucket.
type Histogram struct {
	TopN     int   `json:"top_n"`
	Exact    []int `json:"exact"` // Exact[i] counts rank i+1
	Overflow int   `json:"overflow"`
	Missing  int   `json:"missing"`
}

// Aggregate partitions outcomes into buckets 1..topN, overflow and missing.
func Aggregate(outcomes []domain.Outcome, topN int) Histogram {
	h := Histogram{TopN: topN, Exact: make([]int, topN)}
	for _, o := range outcomes {
		switch {
		case o.Rank == nil:
			h.Missing++
		case *o.Rank > topN:
			h.Overflow++
		case *o.Rank >= 1:
			h.Exact[*o.Rank-1]++
		default:
			// Ranks are 1-based; anything else cannot be placed.
			h.Missing++
		}
	}
	return h
}

// Max returns the largest bucket count.
func (h Histogram) Max() int {
	largest := h.Overflow
	if h.Missing > largest {
		largest = h.Missing
	}
	for _, v := range h.Exact {
		if v > largest {
			largest = v
		}
	}
	return largest
}

// BarLength returns the number of fill glyphs for a bucket of value v.
func BarLength(v, maxValue, totalWidth int) int {
	if maxValue <= 0 || v <= 0 {
		return 0
	}
	avail := totalWidth - labelWidth
	if avail < 0 {
		avail = 0
	}
	return int(float64(avail) / float64(maxValue) * float64(v))
}

// Bar renders a bucket. A non-zero bucket too small for one glyph still gets
// a placeholder so it never looks empty.
func Bar(v, maxValue, totalWidth int) string {
	if v == 0 {
		return ""
	}
	n := BarLength(v, maxValue, totalWidth)
	if n == 0 {
		return placeholderGlyph
	}
	return strings.Repeat(fillGlyph, n)
}

// Renderer prints histograms to a writer chosen at construction time.
type Renderer struct {
	TopN       int
	TotalWidth int
	out        io.Writer
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(topN, totalWidth int, out io.Writer) *Renderer {
	return &Renderer{TopN: topN, TotalWidth: totalWidth, out: out}
}

// Render aggregates outcomes and writes one line per bucket.
func (r *Renderer) Render(outcomes []domain.Outcome) error {
	return r.RenderHistogram(Aggregate(outcomes, r.TopN))
}

// RenderHistogram writes lines in order 1..TopN, overflow, missing.
func (r *Renderer) RenderHistogram(h Histogram) error {
	maxValue := h.Max()
	for i, v := range h.Exact {
		if err := r.line(strconv.Itoa(i+1), v, maxValue); err != nil {
			return err
		}
	}
	if err := r.line(fmt.Sprintf("%d-..", h.TopN+1), h.Overflow, maxValue); err != nil {
		return err
	}
	return r.line(missingLabel, h.Missing, maxValue)
}

func (r *Renderer) line(label string, v, maxValue int) error {
	bar := Bar(v, maxValue, r.TotalWidth)
	_, err := fmt.Fprintln(r.out, strings.TrimRight(fmt.Sprintf("%*s: %*d  %s", labelColumn, label, countColumn, v, bar), " "))
	return err
}

// Render is a convenience wrapper around Renderer.
func Render(outcomes []domain.Outcome, topN, totalWidth int) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = NewRenderer(topN, totalWidth, &sb).Render(outcomes)
	return sb.String()
}
