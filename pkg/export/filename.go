package export

import (
	"path/filepath"
	"strings"
)

const filenameSuffix = "-optimized"

// Filename builds the download name "<base>-optimized<ext>" where base is
// original without directory and extension, or "image" if that is empty.
func Filename(original, ext string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + filenameSuffix + ext
}
