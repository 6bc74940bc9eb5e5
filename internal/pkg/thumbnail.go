package pkg

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
	"github.com/oklog/ulid/v2"
)

const (
	ThumbnailMaxWidth  = 400
	ThumbnailMaxHeight = 400
)

// Thumbnail decodes r and writes a JPEG that fits in 400x400, keeping the aspect ratio.
// It returns the original dimensions.
func Thumbnail(r io.Reader, w io.Writer) (width, height int, err error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	thumb := resize.Thumbnail(ThumbnailMaxWidth, ThumbnailMaxHeight, img, resize.Lanczos3)
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return 0, 0, fmt.Errorf("encode thumbnail: %w", err)
	}
	return b.Dx(), b.Dy(), nil
}

// UploadNames returns the stored file name and thumbnail name for an upload with ext.
func UploadNames(ext string) (original, thumb string) {
	id := ulid.Make().String()
	ext = strings.ToLower(ext)
	return id + ext, id + "_thumb.jpg"
}

// NewRequestID ULIDs sort by creation time, handy when grepping logs.
func NewRequestID() string {
	return ulid.Make().String()
}
