// Package markdown defines the canonical intermediate representation of a
// post body and renders it into Markdown text.
package markdown

// MediaKind distinguishes block-level media spans.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Span is one inline unit of a paragraph.
type Span struct {
	// Text is set for plain and emphasis spans.
	Text string

	Strong bool
	Italic bool

	// Link wraps Children rendered inside the brackets.
	Target   string
	Children []Span

	// Media spans form single-span paragraphs.
	Media MediaKind
	URL   string
	Label string

	// Direct marks a video URL the platform already resolved to a
	// playable address; it bypasses the embed recognizer.
	Direct bool
}

// IsLink reports whether the span renders as [children](target).
func (s Span) IsLink() bool { return s.Target != "" }

// IsMedia reports whether the span is a block-level media reference.
func (s Span) IsMedia() bool { return s.Media != "" }

// Paragraph is an ordered run of spans rendered on one line.
type Paragraph []Span

// Document is the normalizer output: ordered paragraphs separated by blank
// lines when rendered.
type Document []Paragraph
