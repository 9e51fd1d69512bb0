package export

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Info describes a PDF read back from disk.
type Info struct {
	Path       string `json:"path"`
	Pages      int    `json:"pages"`
	TextLength int    `json:"text_length"`
	Text       string `json:"-"`
}

// Inspect opens the PDF at path and extracts its plain text.
func Inspect(path string) (*Info, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info := &Info{Path: path, Pages: r.NumPage()}
	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	info.Text = buf.String()
	info.TextLength = len([]rune(info.Text))
	return info, nil
}
