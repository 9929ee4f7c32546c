package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG receipts are decoded and re-encoded as JPEG
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// ErrUnsupportedImage is returned for receipts that are not JPEG or PNG.
var ErrUnsupportedImage = errors.New("invalid file type: only jpg, jpeg, png allowed")

const (
	receiptMaxBytes   = 300 * 1024
	receiptMaxSide    = 1600
	receiptMinSide    = 480
	receiptQuality    = 85
	receiptMinQuality = 55
)

type FileService interface {
	// UploadReceipt compresses an expense receipt photo and stores it under
	// receipts/{date}/{crewID}-{uuid}.jpg. The stored key is returned.
	UploadReceipt(ctx context.Context, crewID string, date time.Time, file io.Reader, filename string) (string, error)

	DeleteFile(ctx context.Context, path string) error
	GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

func isImageName(filename string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// UploadReceipt implements FileService.
func (s *fileServiceImpl) UploadReceipt(ctx context.Context, crewID string, date time.Time, file io.Reader, filename string) (string, error) {
	if !isImageName(filename) {
		return "", ErrUnsupportedImage
	}

	buffer, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read receipt: %w", err)
	}

	compressed, err := compressImage(buffer, receiptMaxBytes)
	if err != nil {
		return "", err
	}

	key := path.Join("receipts", date.Format(localtime.DateLayout), fmt.Sprintf("%s-%s.jpg", crewID, uuid.New().String()))
	uploaded, err := s.storage.Upload(ctx, bytes.NewReader(compressed), key, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}
	return uploaded, nil
}

// DeleteFile deletes a file
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// GetFileURL generates URL to access file
func (s *fileServiceImpl) GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return s.storage.GetURL(ctx, path, expiry)
}

// compressImage re-encodes an image as JPEG no larger than maxSize. Quality
// is lowered first; oversized photos are then downscaled until they fit or
// reach receiptMinSide.
func compressImage(buffer []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = fitWithin(img, receiptMaxSide)

	var out []byte
	for quality := receiptQuality; quality >= receiptMinQuality; quality -= 10 {
		out, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(out) <= maxSize {
			return out, nil
		}
	}

	for {
		b := img.Bounds()
		longest := max(b.Dx(), b.Dy())
		if longest <= receiptMinSide {
			return out, nil
		}

		ratio := math.Sqrt(float64(maxSize) / float64(len(out)))
		next := max(int(float64(longest)*ratio), receiptMinSide)
		if next >= longest {
			next = longest * 3 / 4
		}
		img = fitWithin(img, next)

		out, err = encodeJPEG(img, receiptMinQuality)
		if err != nil {
			return nil, err
		}
		if len(out) <= maxSize {
			return out, nil
		}
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales img so its longest side is at most side pixels.
func fitWithin(img image.Image, side int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= side && h <= side {
		return img
	}
	if w >= h {
		h = max(h*side/w, 1)
		w = side
	} else {
		w = max(w*side/h, 1)
		h = side
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
