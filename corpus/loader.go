package corpus

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/mfreitas/taxpilot/index"
)

// LoadDirectory walks dir and returns one SourceDocument per supported file,
// keyed by its slash-separated relative path. Files that fail to parse are
// logged and skipped so one bad document does not sink the batch.
func LoadDirectory(dir string, logger *log.Logger) ([]index.SourceDocument, error) {
	if logger == nil {
		logger = log.Default()
	}

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}

	var docs []index.SourceDocument
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		switch ext {
		case ".txt", ".md", ".markdown", ".pdf":
		default:
			return nil
		}

		text, err := readDocument(path, ext)
		if err != nil {
			logger.Printf("skip %s: %v", path, err)
			return nil
		}
		if strings.TrimSpace(text) == "" {
			logger.Printf("skip empty document %s", path)
			return nil
		}

		relPath, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			relPath = path
		}

		docs = append(docs, index.SourceDocument{
			ExternalID: filepath.ToSlash(relPath),
			Text:       text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk data directory: %w", err)
	}

	return docs, nil
}

func readDocument(path, ext string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	if ext == ".pdf" {
		return extractPDFText(data)
	}
	return string(data), nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return buf.String(), nil
}
