package pdf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNotPDF is returned when uploaded data is not a parseable PDF.
var ErrNotPDF = errors.New("data is not a valid PDF")

// StampRequest places a signature onto an existing PDF. Page is
// zero-based; X and Y are PDF points measured from the bottom-left
// corner of the page.
type StampRequest struct {
	Page int
	X    float64
	Y    float64

	// Exactly one of ImageDataURL or Text should be set. ImageDataURL is
	// a data: URL carrying a PNG or JPEG signature image; Text is a
	// typed name rendered in a script-like style.
	ImageDataURL string
	Text         string
}

// Stamp applies the request to the document and returns the stamped PDF.
// The page must exist: pdfcpu quietly no-ops on page selections beyond
// the document, which would leave a signature recorded but never
// rendered.
func Stamp(doc []byte, req StampRequest) ([]byte, error) {
	if req.Page < 0 {
		return nil, fmt.Errorf("invalid page %d", req.Page)
	}
	pageCount, err := PageCount(doc)
	if err != nil {
		return nil, err
	}
	if req.Page >= pageCount {
		return nil, fmt.Errorf("page %d out of range: document has %d page(s)", req.Page, pageCount)
	}

	offset := fmt.Sprintf("pos:bl, off:%.1f %.1f, rot:0", req.X, req.Y)

	var wm *model.Watermark
	switch {
	case req.ImageDataURL != "":
		img, decErr := DecodeImageDataURL(req.ImageDataURL)
		if decErr != nil {
			return nil, decErr
		}
		wm, err = api.ImageWatermarkForReader(bytes.NewReader(img), offset+", scale:0.25 abs", true, false, types.POINTS)
	case req.Text != "":
		wm, err = api.TextWatermark(req.Text, offset+", points:18, font:Helvetica, scale:1 abs", true, false, types.POINTS)
	default:
		return nil, errors.New("stamp request carries neither image nor text")
	}
	if err != nil {
		return nil, fmt.Errorf("build stamp: %w", err)
	}

	pages := []string{fmt.Sprintf("%d", req.Page+1)}
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(doc), &out, pages, wm, nil); err != nil {
		return nil, fmt.Errorf("apply stamp: %w", err)
	}
	return out.Bytes(), nil
}

// Merge concatenates two PDFs, first followed by second.
func Merge(first, second []byte) ([]byte, error) {
	var out bytes.Buffer
	readers := []io.ReadSeeker{bytes.NewReader(first), bytes.NewReader(second)}
	if err := api.MergeRaw(readers, &out, false, nil); err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount parses the document and returns its page count. It doubles
// as upload validation: any parse failure maps to ErrNotPDF.
func PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return n, nil
}

// DecodeImageDataURL extracts the raw image bytes from a PNG or JPEG
// data: URL.
func DecodeImageDataURL(dataURL string) ([]byte, error) {
	const (
		pngPrefix  = "data:image/png;base64,"
		jpegPrefix = "data:image/jpeg;base64,"
	)
	var payload string
	switch {
	case strings.HasPrefix(dataURL, pngPrefix):
		payload = dataURL[len(pngPrefix):]
	case strings.HasPrefix(dataURL, jpegPrefix):
		payload = dataURL[len(jpegPrefix):]
	default:
		return nil, errors.New("unsupported signature image format")
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode signature image: %w", err)
	}
	if len(img) == 0 {
		return nil, errors.New("empty signature image")
	}
	return img, nil
}
