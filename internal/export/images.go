package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultImageTimeout = 15 * time.Second
	defaultMaxEdge      = 1600
	maxImageBytes       = 20 << 20
	jpegQuality         = 85
)

// ImageSource loads the raw bytes of a photo reference.
type ImageSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Fetcher loads photos over HTTP(S), from file:// URLs, from data: URIs
// and from local paths.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewFetcher returns a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}, Timeout: timeout}
}

func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty photo reference")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", ref, err)
		}
		return readFile(u.Path)
	}
	return readFile(ref)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", ref, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func readFile(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer fh.Close()
	return readLimited(fh)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("photo larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data uri")
	}
	meta, payload := ref[len("data:"):comma], ref[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data uri is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return data, nil
}

// photo is an image re-encoded as JPEG, ready to embed.
type photo struct {
	data          []byte
	width, height int
}

// preparePhoto decodes raw (JPEG, PNG, WebP or BMP), flattens it on white,
// shrinks it so its longest edge is at most maxEdge pixels and re-encodes
// it as JPEG.
func preparePhoto(raw []byte, maxEdge int) (*photo, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}
	if maxEdge <= 0 {
		maxEdge = defaultMaxEdge
	}
	if w > maxEdge || h > maxEdge {
		if w >= h {
			h = max(1, h*maxEdge/w)
			w = maxEdge
		} else {
			w = max(1, w*maxEdge/h)
			h = maxEdge
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &photo{data: out.Bytes(), width: w, height: h}, nil
}
