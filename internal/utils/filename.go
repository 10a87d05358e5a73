package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a suggested download name safe on every common
// filesystem. The result is never empty.
func SanitizeFilename(filename string) string {
	filename = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(filename)
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.Trim(filename, " .")

	// Leave room for an extension.
	if len(filename) > 200 {
		filename = strings.TrimSpace(truncateUTF8(filename, 200))
	}

	if filename == "" {
		filename = "Untitled"
	}
	return filename
}

// DownloadName builds "<title>.<format>" for a download link. The format tag
// is lower-cased; an empty tag yields the bare title.
func DownloadName(title, format string) string {
	name := SanitizeFilename(title)
	ext := strings.ToLower(strings.Trim(strings.TrimSpace(format), "."))
	ext = invalidFilenameChars.ReplaceAllString(ext, "")
	if ext == "" || strings.HasSuffix(strings.ToLower(name), "."+ext) {
		return name
	}
	return name + "." + ext
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
