package sponsr

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// convertToMarkdown converts a normalized HTML fragment into Markdown. The
// converter keeps its turndown-style defaults (underscore italics, double
// asterisk bold); the post pass is written against exactly those artifacts.
func convertToMarkdown(fragment string) (string, error) {
	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}
	return strings.TrimSpace(out) + "\n", nil
}
