package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// videoEmbedPatterns matches embed URLs of the video hosts the platforms
// are known to use.
var videoEmbedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rutube\.ru/play/embed/[a-f0-9]+`),
	regexp.MustCompile(`youtube\.com/embed/[^/?]+`),
	regexp.MustCompile(`youtu\.be/[^/?]+`),
	regexp.MustCompile(`player\.vimeo\.com/video/\d+`),
	regexp.MustCompile(`ok\.ru/videoembed/\d+`),
	regexp.MustCompile(`vk\.com/video_ext\.php\?`),
}

// IsVideoEmbed reports whether url matches a known video-host embed pattern.
func IsVideoEmbed(url string) bool {
	for _, p := range videoEmbedPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// RenderVideoLink renders a video URL as a Markdown link. Recognized embed
// URLs and URLs that still look like embeds keep their literal address;
// anything else produces no output.
func RenderVideoLink(url string) string {
	if url == "" {
		return ""
	}
	if IsVideoEmbed(url) {
		return fmt.Sprintf("[Video](%s)", url)
	}
	if strings.Contains(url, "video") || strings.Contains(url, "embed") {
		return fmt.Sprintf("[Video](%s)", url)
	}
	return ""
}
