// internal/assets/assets.go
package assets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"nrcms/internal/gendirs"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultSize is the target width used when a tag does not name one.
const DefaultSize = 200

// MaxSize bounds both dimensions of a resized image.
const MaxSize = 4096

// ErrTooLarge is wrapped by resize errors for targets beyond MaxSize.
var ErrTooLarge = errors.New("target size too large")

// Error is returned when an asset cannot be read, decoded or written.
type Error struct {
	Op   string // open, decode, resize, encode, write
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("asset %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Service resizes images and produces inline data URLs. All paths are
// resolved on the service's filesystem.
type Service struct {
	fs          afero.Fs
	defaultSize int
}

// New returns a Service reading and writing through fs. A defaultSize of
// zero or less falls back to DefaultSize.
func New(fs afero.Fs, defaultSize int) *Service {
	if defaultSize <= 0 {
		defaultSize = DefaultSize
	}
	return &Service{fs: fs, defaultSize: defaultSize}
}

// EncodeInline resizes the image at path and returns it as a base64 data
// URL along with the URL's length in bytes.
func (s *Service) EncodeInline(path string, size *int) (string, int, error) {
	img, format, err := s.decode(path)
	if err != nil {
		return "", 0, err
	}
	scaled, err := resize(img, s.width(size))
	if err != nil {
		return "", 0, &Error{Op: "resize", Path: path, Err: err}
	}
	data, err := encode(scaled, format)
	if err != nil {
		return "", 0, &Error{Op: "encode", Path: path, Err: err}
	}
	url := "data:" + mimetype.Detect(data).String() + ";base64," + base64.StdEncoding.EncodeToString(data)
	return url, len(url), nil
}

// CopyResized writes a copy of src scaled to the given width to dst.
func (s *Service) CopyResized(src, dst string, size int) error {
	img, format, err := s.decode(src)
	if err != nil {
		return err
	}
	scaled, err := resize(img, s.width(&size))
	if err != nil {
		return &Error{Op: "resize", Path: src, Err: err}
	}
	data, err := encode(scaled, format)
	if err != nil {
		return &Error{Op: "encode", Path: src, Err: err}
	}
	if err := gendirs.WriteFile(s.fs, dst, data); err != nil {
		return &Error{Op: "write", Path: dst, Err: err}
	}
	return nil
}

// Copy places an unmodified copy of src at dst.
func (s *Service) Copy(src, dst string) error {
	if err := gendirs.CopyFile(s.fs, src, dst); err != nil {
		return &Error{Op: "write", Path: dst, Err: err}
	}
	return nil
}

func (s *Service) width(size *int) int {
	if size == nil || *size <= 0 {
		return s.defaultSize
	}
	return *size
}

func (s *Service) decode(path string) (image.Image, string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, "", &Error{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", &Error{Op: "decode", Path: path, Err: err}
	}
	return img, format, nil
}

// resize scales img to the target width, keeping the aspect ratio. Targets
// with either side above MaxSize are refused before anything is allocated.
func resize(img image.Image, width int) (image.Image, error) {
	if width > MaxSize {
		return nil, fmt.Errorf("width %d exceeds %d: %w", width, MaxSize, ErrTooLarge)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return img, nil
	}
	height := int(int64(b.Dy()) * int64(width) / int64(b.Dx()))
	if height > MaxSize {
		return nil, fmt.Errorf("height %d exceeds %d: %w", height, MaxSize, ErrTooLarge)
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
