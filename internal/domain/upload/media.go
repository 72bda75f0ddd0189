package upload

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".webp": true, ".heic": true, ".heif": true, ".svg": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true,
	".m4v": true, ".3gp": true, ".flv": true, ".wmv": true,
}

// Classify derives the media type from the file extension alone.
func Classify(name string) MediaType {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExtensions[ext]:
		return MediaImage
	case videoExtensions[ext]:
		return MediaVideo
	default:
		return MediaOther
	}
}

// ParseMediaType accepts the gallery ?type= filter. Empty means no filter.
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", true
	case MediaImage:
		return MediaImage, true
	case MediaVideo:
		return MediaVideo, true
	}
	return "", false
}

// GroupByMonth buckets gallery files by the YYYYMMDD stamp camera apps put
// after the first underscore (IMG_20250122_143022.jpg -> 2025-01).
func GroupByMonth(files []FileDescriptor) map[string][]FileDescriptor {
	groups := make(map[string][]FileDescriptor)
	for _, f := range files {
		key := "Other"
		parts := strings.Split(f.Name, "_")
		if len(parts) > 1 && len(parts[1]) >= 8 && isDigits(parts[1][:8]) {
			key = parts[1][:4] + "-" + parts[1][4:6]
		}
		groups[key] = append(groups[key], f)
	}
	return groups
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
