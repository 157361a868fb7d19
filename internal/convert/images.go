package convert

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ImageKey builds a unique object storage key for an extracted image,
// keeping the original extension so content type survives.
func ImageKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "images/" + uuid.New().String() + ext
}

// ContentType maps an image filename to its MIME type.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// RewriteImageLinks replaces converter-local image references in markdown
// with uploaded URLs. For each filename three forms are rewritten in turn:
// exact markdown link target, link target with any path prefix, then bare
// filename anywhere in the remaining text. A single document can mix all
// three forms, so every tier is applied rather than stopping at the first
// hit.
func RewriteImageLinks(md string, urls map[string]string) string {
	filenames := make([]string, 0, len(urls))
	for f := range urls {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)

	for _, filename := range filenames {
		url := urls[filename]

		exact := "](" + filename + ")"
		md = strings.ReplaceAll(md, exact, "]("+url+")")

		prefixed := regexp.MustCompile(`\]\([^)]*/` + regexp.QuoteMeta(filename) + `\)`)
		md = prefixed.ReplaceAllString(md, "]("+url+")")

		md = strings.ReplaceAll(md, filename, url)
	}
	return md
}
