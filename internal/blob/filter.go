package blob

import (
	"net/url"
	"strings"
)

// imageExtensions is the fixed allow-set of file extensions that are
// considered images. Membership is tested case-insensitively.
var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
	"webp": true,
	"tiff": true,
	"tif":  true,
}

// IsImageFile reports whether the URL names an image, judged solely by the
// trailing extension of its path component. A path with no "." is never an
// image. The check never inspects content or MIME type, so a mislabeled
// file passes or fails on its name alone.
func IsImageFile(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(u.Path)
	dot := strings.LastIndex(path, ".")
	if dot < 0 {
		return false
	}

	return imageExtensions[path[dot+1:]]
}
