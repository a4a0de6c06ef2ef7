package normalizer

import (
	"fmt"
	"regexp"
	"time"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	nameExtension   = regexp.MustCompile(`\.[^/.]+$`)
)

// FileName derives a storage name from an uploaded file name:
// "My Photo!.PNG" becomes "<unix millis>_My_Photo_.webp".
func FileName(original, ext string, now time.Time) string {
	safe := unsafeNameChars.ReplaceAllString(original, "_")
	safe = nameExtension.ReplaceAllString(safe, "")
	return fmt.Sprintf("%d_%s.%s", now.UnixMilli(), safe, ext)
}
