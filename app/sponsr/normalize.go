package sponsr

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/akornilov/postvault/app/markdown"
)

// spacingMarker holds a word boundary across the Markdown conversion step,
// which can collapse plain spaces next to inline elements. A no-break
// space survives conversion; the post pass turns it into a plain space.
const spacingMarker = "\u00a0"

// emphasisClass groups equivalent formatting tags. The rewrite passes
// consult it instead of comparing tag names directly.
var emphasisClass = map[string]string{
	"b":      "strong",
	"strong": "strong",
	"i":      "em",
	"em":     "em",
}

// inlineMarked lists the inline elements that get spacing markers when
// directly adjacent to alphanumeric text.
var inlineMarked = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "a": true,
}

// NormalizeHTML runs the DOM rewrite passes over an HTML fragment and
// returns the cleaned fragment, ready for Markdown conversion.
func NormalizeHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return fragment, nil
	}
	root := body.Get(0)

	replaceVideoEmbeds(root)
	unwrapEquivalent(root)
	mergeSiblingEmphasis(root)
	hoistEdgeWhitespace(root)
	dropEmptyFormatting(root)
	insertSpacingMarkers(root)

	return body.Html()
}

// replaceVideoEmbeds swaps iframe and embed elements pointing at video
// hosts for a paragraph holding a plain link. Non-video frames are left for
// the converter to drop.
func replaceVideoEmbeds(root *html.Node) {
	for _, n := range collect(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.Data == "iframe" || n.Data == "embed")
	}) {
		src := attrValue(n, "src")
		if src == "" {
			continue
		}
		if !markdown.IsVideoEmbed(src) && !strings.Contains(src, "video") && !strings.Contains(src, "embed") {
			continue
		}

		p := &html.Node{Type: html.ElementNode, Data: "p"}
		a := &html.Node{
			Type: html.ElementNode,
			Data: "a",
			Attr: []html.Attribute{{Key: "href", Val: src}},
		}
		a.AppendChild(&html.Node{Type: html.TextNode, Data: "Video"})
		p.AppendChild(a)

		n.Parent.InsertBefore(p, n)
		n.Parent.RemoveChild(n)
	}
}

// unwrapEquivalent removes a formatting element nested directly inside one
// of the same equivalence class, so <b><strong>x</strong></b> carries a
// single bold level.
func unwrapEquivalent(root *html.Node) {
	for _, n := range collect(root, isFormatting) {
		parent := n.Parent
		if parent == nil || parent.Type != html.ElementNode {
			continue
		}
		if emphasisClass[parent.Data] != emphasisClass[n.Data] {
			continue
		}
		unwrap(n)
	}
}

// mergeSiblingEmphasis joins runs of sibling emphasis elements separated
// only by whitespace, or by a bold element whose content is wrapped in the
// same emphasis kind, into one element spanning the run.
func mergeSiblingEmphasis(root *html.Node) {
	parents := collect(root, func(n *html.Node) bool { return n.Type == html.ElementNode })
	parents = append(parents, root)
	for _, p := range parents {
		mergeRuns(p, "em")
		mergeRuns(p, "strong")
	}
}

func mergeRuns(parent *html.Node, class string) {
	for c := parent.FirstChild; c != nil; {
		if !isRunMember(c, class) || isWhitespaceText(c) {
			c = c.NextSibling
			continue
		}

		end := c
		participants := 0
		for n := c; n != nil && isRunMember(n, class); n = n.NextSibling {
			if !isWhitespaceText(n) {
				end = n
				participants++
			}
		}
		if participants < 2 {
			c = end.NextSibling
			continue
		}

		merged := &html.Node{Type: html.ElementNode, Data: class}
		parent.InsertBefore(merged, c)
		for n := c; ; {
			next := n.NextSibling
			parent.RemoveChild(n)
			appendRunMember(merged, n, class)
			if n == end {
				break
			}
			n = next
		}
		c = merged.NextSibling
	}
}

func isRunMember(n *html.Node, class string) bool {
	if n == nil {
		return false
	}
	if isWhitespaceText(n) {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	if emphasisClass[n.Data] == class {
		return true
	}
	return class == "em" && boldWrappedEm(n)
}

// boldWrappedEm reports a bold element whose only non-whitespace content is
// a single emphasis child, the <b><em>x</em></b> shape.
func boldWrappedEm(n *html.Node) bool {
	if n.Type != html.ElementNode || emphasisClass[n.Data] != "strong" {
		return false
	}
	ems := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isWhitespaceText(c):
		case c.Type == html.ElementNode && emphasisClass[c.Data] == "em":
			ems++
		default:
			return false
		}
	}
	return ems == 1
}

func appendRunMember(merged, n *html.Node, class string) {
	switch {
	case n.Type == html.TextNode:
		merged.AppendChild(n)
	case emphasisClass[n.Data] == class:
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			merged.AppendChild(c)
			c = next
		}
	default:
		// Bold wrapped around the run's emphasis kind: the inner
		// emphasis becomes redundant inside the merged element.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && emphasisClass[c.Data] == "em" {
				unwrap(c)
				break
			}
		}
		merged.AppendChild(n)
	}
}

// hoistEdgeWhitespace moves leading and trailing whitespace of a formatting
// element outside it, keeping word adjacency without producing emphasis
// markers next to spaces.
func hoistEdgeWhitespace(root *html.Node) {
	for _, n := range collect(root, isFormatting) {
		hoistLeading(n)
		hoistTrailing(n)
	}
}

func hoistLeading(n *html.Node) {
	c := n.FirstChild
	if c == nil || c.Type != html.TextNode {
		return
	}
	trimmed := strings.TrimLeftFunc(c.Data, unicode.IsSpace)
	if trimmed == c.Data {
		return
	}
	ws := c.Data[:len(c.Data)-len(trimmed)]
	n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: ws}, n)
	if trimmed == "" {
		n.RemoveChild(c)
	} else {
		c.Data = trimmed
	}
}

func hoistTrailing(n *html.Node) {
	c := n.LastChild
	if c == nil || c.Type != html.TextNode {
		return
	}
	trimmed := strings.TrimRightFunc(c.Data, unicode.IsSpace)
	if trimmed == c.Data {
		return
	}
	ws := c.Data[len(trimmed):]
	n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: ws}, n.NextSibling)
	if trimmed == "" {
		n.RemoveChild(c)
	} else {
		c.Data = trimmed
	}
}

// dropEmptyFormatting removes formatting elements left without visible
// content; whitespace-only ones are replaced by their whitespace so word
// spacing survives. Elements still carrying child elements are kept.
func dropEmptyFormatting(root *html.Node) {
	for _, n := range collect(root, isFormatting) {
		if hasElementChild(n) {
			continue
		}
		text := textContent(n)
		switch {
		case text == "":
			n.Parent.RemoveChild(n)
		case strings.TrimSpace(text) == "":
			n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, n)
			n.Parent.RemoveChild(n)
		}
	}
}

// insertSpacingMarkers separates an inline formatting or link element from
// directly adjacent alphanumeric text on either side.
func insertSpacingMarkers(root *html.Node) {
	for _, n := range collect(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && inlineMarked[n.Data]
	}) {
		if prev := n.PrevSibling; prev != nil && prev.Type == html.TextNode && endsAlnum(prev.Data) {
			n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: spacingMarker}, n)
		}
		if next := n.NextSibling; next != nil && next.Type == html.TextNode && startsAlnum(next.Data) {
			n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: spacingMarker}, next)
		}
	}
}

// collect gathers matching nodes in post-order, so passes that remove inner
// nodes see children before parents.
func collect(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n != root && pred(n) {
			out = append(out, n)
		}
	}
	walk(root)
	return out
}

func isFormatting(n *html.Node) bool {
	return n.Type == html.ElementNode && emphasisClass[n.Data] != ""
}

func isWhitespaceText(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// unwrap lifts a node's children into its parent at the node's position and
// removes the node.
func unwrap(n *html.Node) {
	parent := n.Parent
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
