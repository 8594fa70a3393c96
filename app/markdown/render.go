package markdown

import (
	"fmt"
	"strings"
	"unicode"
)

// Renderer serializes a Document into Markdown text. Asset URLs found in
// the provided map are rewritten to local paths under assets/.
type Renderer struct {
	assetMap map[string]string
}

func NewRenderer(assetMap map[string]string) *Renderer {
	if assetMap == nil {
		assetMap = map[string]string{}
	}
	return &Renderer{assetMap: assetMap}
}

// Render produces the post body: paragraphs separated by one blank line,
// terminated by a single newline. Empty paragraphs are never emitted.
func (r *Renderer) Render(doc Document) string {
	var paragraphs []string
	for _, p := range doc {
		text := r.renderParagraph(p)
		if strings.TrimSpace(text) == "" {
			continue
		}
		paragraphs = append(paragraphs, text)
	}
	if len(paragraphs) == 0 {
		return ""
	}
	return strings.Join(paragraphs, "\n\n") + "\n"
}

func (r *Renderer) renderParagraph(p Paragraph) string {
	var b strings.Builder
	for _, span := range p {
		b.WriteString(r.renderSpan(span))
	}
	return b.String()
}

func (r *Renderer) renderSpan(span Span) string {
	switch {
	case span.IsMedia():
		return r.renderMedia(span)
	case span.IsLink():
		inner := strings.TrimSpace(r.renderParagraph(Paragraph(span.Children)))
		if inner == "" {
			return ""
		}
		return fmt.Sprintf("[%s](%s)", inner, span.Target)
	case span.Strong || span.Italic:
		return wrapEmphasis(span.Text, span.Strong, span.Italic)
	default:
		return span.Text
	}
}

// wrapEmphasis chooses the minimal delimiter and keeps edge whitespace
// outside the markers, since "* text*" is not valid emphasis.
func wrapEmphasis(text string, strong, italic bool) string {
	stripped := strings.TrimFunc(text, unicode.IsSpace)
	if stripped == "" {
		return text
	}

	var marker string
	switch {
	case strong && italic:
		marker = "***"
	case strong:
		marker = "**"
	default:
		marker = "*"
	}

	leading := text[:len(text)-len(strings.TrimLeftFunc(text, unicode.IsSpace))]
	trailing := text[len(strings.TrimRightFunc(text, unicode.IsSpace)):]
	return leading + marker + stripped + marker + trailing
}

func (r *Renderer) renderMedia(span Span) string {
	target := span.URL
	if local, ok := r.assetMap[span.URL]; ok {
		target = "assets/" + local
	}

	switch span.Media {
	case MediaImage:
		if target == "" {
			return ""
		}
		return fmt.Sprintf("![](%s)", target)
	case MediaAudio:
		if target == "" {
			return ""
		}
		label := span.Label
		if label == "" {
			label = "audio"
		}
		return fmt.Sprintf("[Audio: %s](%s)", label, target)
	case MediaVideo:
		if local, ok := r.assetMap[span.URL]; ok {
			return fmt.Sprintf("[Video](assets/%s)", local)
		}
		if span.Direct && span.URL != "" {
			return fmt.Sprintf("[Video](%s)", span.URL)
		}
		return RenderVideoLink(span.URL)
	}
	return ""
}
