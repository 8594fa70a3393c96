package assets

// Asset is one media reference discovered in a post body.
type Asset struct {
	URL   string
	Label string
}

// extensionCategories maps allowed file extensions to their asset category.
var extensionCategories = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".svg":  "image",
	".mp4":  "video",
	".webm": "video",
	".mov":  "video",
	".mkv":  "video",
	".avi":  "video",
	".mp3":  "audio",
	".wav":  "audio",
	".flac": "audio",
	".ogg":  "audio",
	".pdf":  "document",
}

// contentTypeExtensions infers an extension when the URL path carries none.
var contentTypeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
	"audio/flac":      ".flac",
	"audio/ogg":       ".ogg",
	"application/pdf": ".pdf",
}
