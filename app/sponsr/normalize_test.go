package sponsr

import (
	"strings"
	"testing"
)

func normalize(t *testing.T, fragment string) string {
	t.Helper()
	out, err := NormalizeHTML(fragment)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return out
}

func TestNormalizeHTML_UnwrapsNestedEquivalentTags(t *testing.T) {
	out := normalize(t, "<p><b><strong>text</strong></b></p>")

	if strings.Count(out, "text") != 1 {
		t.Fatalf("Text lost: %s", out)
	}
	// Only one bold level must survive
	opens := strings.Count(out, "<b>") + strings.Count(out, "<strong>")
	if opens != 1 {
		t.Errorf("Expected a single bold element, got %d in %s", opens, out)
	}
}

func TestNormalizeHTML_MergesSiblingEmphasis(t *testing.T) {
	out := normalize(t, "<p><em>one</em> <em>two</em></p>")

	if strings.Count(out, "<em>") != 1 {
		t.Errorf("Expected merged emphasis run, got %s", out)
	}
	if !strings.Contains(out, "one two") {
		t.Errorf("Expected joined text 'one two', got %s", out)
	}
}

func TestNormalizeHTML_MergesBoldWrappedEmphasisIntoRun(t *testing.T) {
	// <em>a</em> <b><em>b</em></b> is one italic run with a bold middle
	out := normalize(t, "<p><em>start</em> <b><em>middle</em></b> <em>end</em></p>")

	if strings.Count(out, "<em>") != 1 {
		t.Errorf("Expected one merged emphasis element, got %s", out)
	}
	if !strings.Contains(out, "<b>middle</b>") {
		t.Errorf("Expected inner bold kept without redundant emphasis, got %s", out)
	}
}

func TestNormalizeHTML_HoistsEdgeWhitespace(t *testing.T) {
	out := normalize(t, "<p>a<b> bold </b>b</p>")

	if !strings.Contains(out, "<b>bold</b>") {
		t.Errorf("Expected whitespace hoisted outside the element, got %s", out)
	}
	if !strings.Contains(out, "a <b>") {
		t.Errorf("Expected leading space preserved before the element, got %s", out)
	}
}

func TestNormalizeHTML_DropsEmptyFormatting(t *testing.T) {
	out := normalize(t, "<p>a<b></b>b</p>")

	if strings.Contains(out, "<b>") {
		t.Errorf("Expected empty bold removed, got %s", out)
	}
	if !strings.Contains(out, "ab") {
		t.Errorf("Expected surrounding text joined, got %s", out)
	}
}

func TestNormalizeHTML_WhitespaceOnlyFormattingKeepsSpacing(t *testing.T) {
	out := normalize(t, "<p>a<b> </b>b</p>")

	if strings.Contains(out, "<b>") {
		t.Errorf("Expected whitespace-only bold removed, got %s", out)
	}
	if !strings.Contains(out, "a b") {
		t.Errorf("Expected word spacing preserved, got %s", out)
	}
}

func TestNormalizeHTML_InsertsSpacingMarkers(t *testing.T) {
	out := normalize(t, "<p>слово<b>жирное</b>дальше</p>")

	if !strings.Contains(out, "слово"+spacingMarker+"<b>") {
		t.Errorf("Expected marker before the element, got %s", out)
	}
	if !strings.Contains(out, "</b>"+spacingMarker+"дальше") {
		t.Errorf("Expected marker after the element, got %s", out)
	}
}

func TestNormalizeHTML_NoMarkerNextToPunctuation(t *testing.T) {
	out := normalize(t, "<p>текст <b>жирный</b>.</p>")

	if strings.Contains(out, "</b>"+spacingMarker) {
		t.Errorf("Expected no marker before punctuation, got %s", out)
	}
}

func TestNormalizeHTML_VideoIframeBecomesLink(t *testing.T) {
	out := normalize(t, `<p>intro</p><iframe src="https://rutube.ru/play/embed/abc123"></iframe>`)

	if strings.Contains(out, "<iframe") {
		t.Errorf("Expected iframe removed, got %s", out)
	}
	if !strings.Contains(out, `<a href="https://rutube.ru/play/embed/abc123">Video</a>`) {
		t.Errorf("Expected literal embed URL in link, got %s", out)
	}
}

func TestNormalizeHTML_VideoHostIframeWithoutEmbedPattern(t *testing.T) {
	out := normalize(t, `<iframe src="https://video.example.com/player/55"></iframe>`)

	if !strings.Contains(out, `href="https://video.example.com/player/55"`) {
		t.Errorf("Expected video-host frame converted, got %s", out)
	}
}

func TestNormalizeHTML_NonVideoIframeLeftAlone(t *testing.T) {
	out := normalize(t, `<iframe src="https://maps.example.com/widget"></iframe>`)

	if strings.Contains(out, "Video") {
		t.Errorf("Expected non-video frame ignored, got %s", out)
	}
}
