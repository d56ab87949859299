// Package classify groups scanned pages into output documents using the QR markers
// found on each page.
package classify

import "github.com/local/qrsplit/internal/qrdecode"

// Exact, case-sensitive QR payloads. Anything else, including no QR at all, is an
// ordinary content page.
const (
	SeparatorSentinel   = "Separador"
	UnavailableSentinel = "No Disponible"
)

// Kind of an output segment.
type Kind int

const (
	Document Kind = iota
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Document:
		return "document"
	case Unavailable:
		return "no_disponible"
	default:
		return "unknown"
	}
}

// Segment is one output document: a run of consecutive content pages, or a single
// unavailable page. Pages are 0-based and strictly increasing.
type Segment struct {
	Kind  Kind
	Pages []int
}

func isSentinel(p qrdecode.Payload, sentinel string) bool {
	return p.Detected && p.Text == sentinel
}

// Classify segments pages in source order. Separator pages close the current document
// and are dropped; unavailable pages close it and become their own segment.
func Classify(payloads []qrdecode.Payload) []Segment {
	var segments []Segment
	var current []int

	flush := func() {
		if len(current) == 0 {
			return
		}
		segments = append(segments, Segment{Kind: Document, Pages: current})
		current = nil
	}

	for i, p := range payloads {
		switch {
		case isSentinel(p, SeparatorSentinel):
			flush()
		case isSentinel(p, UnavailableSentinel):
			flush()
			segments = append(segments, Segment{Kind: Unavailable, Pages: []int{i}})
		default:
			current = append(current, i)
		}
	}
	flush()
	return segments
}

// ClassifyTexts classifies plain strings, each taken as a detected payload.
func ClassifyTexts(texts []string) []Segment {
	payloads := make([]qrdecode.Payload, len(texts))
	for i, t := range texts {
		payloads[i] = qrdecode.Found(t)
	}
	return Classify(payloads)
}

// Separators returns the page indices consumed as separators.
func Separators(payloads []qrdecode.Payload) []int {
	var out []int
	for i, p := range payloads {
		if isSentinel(p, SeparatorSentinel) {
			out = append(out, i)
		}
	}
	return out
}
