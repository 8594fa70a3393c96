package boosty

import (
	"encoding/json"
	"unicode"

	"github.com/akornilov/postvault/app/markdown"
)

// styleRange is one styling instruction of a text payload. Offsets count
// runes and are relative to the paragraph, not the block.
type styleRange struct {
	kind   int
	start  int
	length int
}

// Style kinds observed in API payloads. Kind 4 marks link ranges, which are
// carried by dedicated link blocks instead.
const (
	styleBold   = 1
	styleItalic = 2
)

// BuildDocument converts the content block stream into the canonical
// document. Inline blocks accumulate into one paragraph until a BLOCK_END
// modificator or a block-level element closes it.
func BuildDocument(blocks []Block) markdown.Document {
	var doc markdown.Document
	var para markdown.Paragraph

	// Rune offset of the next inline block within the current paragraph.
	// Style ranges arrive paragraph-relative and are translated by it.
	offset := 0

	flush := func() {
		if len(para) > 0 {
			doc = append(doc, mergeAdjacent(para))
			para = nil
		}
		offset = 0
	}

	for _, block := range blocks {
		if block.Modificator == blockEnd {
			flush()
			continue
		}

		switch block.Type {
		case "text":
			text, styles := parsePayload(block.Content)
			if text == "" {
				continue
			}
			para = append(para, applyStyles(text, shiftStyles(styles, offset))...)
			offset += len([]rune(text))

		case "link":
			text, styles := parsePayload(block.Content)
			if block.URL != "" {
				children := applyStyles(text, shiftStyles(styles, offset))
				para = append(para, markdown.Span{Target: block.URL, Children: children})
			}
			offset += len([]rune(text))

		case "image":
			flush()
			if block.URL != "" {
				doc = append(doc, markdown.Paragraph{{Media: markdown.MediaImage, URL: block.URL}})
			}

		case "audio_file":
			flush()
			if block.URL != "" {
				label := block.Title
				if label == "" {
					label = string(block.ID)
				}
				doc = append(doc, markdown.Paragraph{{Media: markdown.MediaAudio, URL: block.URL, Label: label}})
			}

		case "ok_video":
			flush()
			if url := resolveVideoURL(block); url != "" {
				doc = append(doc, markdown.Paragraph{{Media: markdown.MediaVideo, URL: url, Direct: true}})
			}
		}
	}
	flush()

	return doc
}

// parsePayload decodes the ["text", "style", [[kind, start, len], ...]]
// content of a text or link block. Malformed payloads fall back to the raw
// content string with no styles.
func parsePayload(content string) (string, []styleRange) {
	if content == "" {
		return "", nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(content), &parts); err != nil {
		return content, nil
	}
	if len(parts) == 0 {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(parts[0], &text); err != nil {
		return "", nil
	}

	var ranges []styleRange
	if len(parts) >= 3 {
		var raw [][]float64
		if err := json.Unmarshal(parts[2], &raw); err == nil {
			for _, s := range raw {
				if len(s) < 3 {
					continue
				}
				ranges = append(ranges, styleRange{kind: int(s[0]), start: int(s[1]), length: int(s[2])})
			}
		}
	}

	return text, ranges
}

// shiftStyles translates paragraph-relative ranges into block-local ones.
func shiftStyles(ranges []styleRange, offset int) []styleRange {
	if offset == 0 {
		return ranges
	}
	shifted := make([]styleRange, len(ranges))
	for i, r := range ranges {
		shifted[i] = styleRange{kind: r.kind, start: r.start - offset, length: r.length}
	}
	return shifted
}

// applyStyles marks bold and italic attributes per rune and groups equal
// runs into spans. Ranges falling outside the text belong to neighboring
// blocks and are discarded; ranges covering only whitespace are never
// styled since the markers would not parse.
func applyStyles(text string, ranges []styleRange) []markdown.Span {
	if len(ranges) == 0 {
		return []markdown.Span{{Text: text}}
	}

	runes := []rune(text)
	bold := make([]bool, len(runes))
	italic := make([]bool, len(runes))

	for _, r := range ranges {
		if r.kind != styleBold && r.kind != styleItalic {
			continue
		}
		end := r.start + r.length
		if r.start < 0 || end > len(runes) || r.start >= end {
			continue
		}
		if allWhitespace(runes[r.start:end]) {
			continue
		}
		for i := r.start; i < end; i++ {
			if r.kind == styleBold {
				bold[i] = true
			} else {
				italic[i] = true
			}
		}
	}

	var spans []markdown.Span
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && bold[i] == bold[start] && italic[i] == italic[start] {
			continue
		}
		spans = append(spans, markdown.Span{
			Text:   string(runes[start:i]),
			Strong: bold[start],
			Italic: italic[start],
		})
		start = i
	}
	return spans
}

// mergeAdjacent joins neighboring text spans carrying the same emphasis, so
// styling that continues across a block boundary renders as one run instead
// of back-to-back delimiters.
func mergeAdjacent(para markdown.Paragraph) markdown.Paragraph {
	merged := para[:1]
	for _, span := range para[1:] {
		last := &merged[len(merged)-1]
		if !span.IsMedia() && !span.IsLink() && !last.IsMedia() && !last.IsLink() &&
			span.Strong == last.Strong && span.Italic == last.Italic {
			last.Text += span.Text
			continue
		}
		merged = append(merged, span)
	}
	return merged
}

func allWhitespace(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// playerURLPriority orders ok_video quality variants best first. Stream
// formats are taken only when no progressive variant has a URL.
var playerURLPriority = []string{"ultra_hd", "quad_hd", "full_hd", "high", "medium", "low", "lowest", "tiny"}

// bestPlayerURL picks the highest-quality non-empty player URL.
func bestPlayerURL(block Block) string {
	byType := make(map[string]string, len(block.PlayerURLs))
	for _, p := range block.PlayerURLs {
		if p.URL != "" && byType[p.Type] == "" {
			byType[p.Type] = p.URL
		}
	}
	for _, t := range playerURLPriority {
		if url := byType[t]; url != "" {
			return url
		}
	}
	for _, p := range block.PlayerURLs {
		if p.URL != "" {
			return p.URL
		}
	}
	return ""
}

// resolveVideoURL resolves an ok_video block to a playable address: the
// best player URL, then the ok.ru watch page, then the legacy embed page.
func resolveVideoURL(block Block) string {
	if url := bestPlayerURL(block); url != "" {
		return url
	}
	if block.Vid != "" {
		return "https://ok.ru/video/" + string(block.Vid)
	}
	if block.ID != "" {
		return "https://ok.ru/videoembed/" + string(block.ID)
	}
	return ""
}
