package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractPageImages pulls the embedded page images out of a PDF and indexes
// them by 1-based page number. Pages without an embedded image (pure vector
// pages) are simply absent from the result; rendering such a page fails
// per-page, not per-document.
func extractPageImages(data []byte) (map[int]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "docslice-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	tempFile := filepath.Join(tempDir, "doc.pdf")
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	if err := api.ExtractImagesFile(tempFile, tempDir, nil, nil); err != nil {
		return nil, fmt.Errorf("image extraction failed: %w", err)
	}

	return collectExtractedImages(tempDir)
}

// collectExtractedImages walks the extraction directory and keeps the first
// decodable image per page. pdfcpu names files page_<num>_image_<idx>.<ext>.
func collectExtractedImages(dir string) (map[int]image.Image, error) {
	result := make(map[int]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		if _, exists := result[pageNum]; exists {
			return nil
		}

		img, err := loadImageFile(path)
		if err != nil {
			return nil
		}
		result[pageNum] = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: paths come from our own temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// parsePageFromFilename extracts the page number from a pdfcpu extraction
// filename.
func parsePageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page file")
	}

	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}

	pageNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}
