package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetcher(t *testing.T) {
	payload := pngBytes(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(payload)
		case "/slow.png":
			time.Sleep(300 * time.Millisecond)
			w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "local.png")
	if err := os.WriteFile(local, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(100 * time.Millisecond)
	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{"http", srv.URL + "/ok.png", false},
		{"http 404", srv.URL + "/nope.png", true},
		{"http timeout", srv.URL + "/slow.png", true},
		{"file url", "file://" + local, false},
		{"local path", local, false},
		{"missing file", filepath.Join(dir, "absent.png"), true},
		{"data uri", "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload), false},
		{"data uri not base64", "data:text/plain,hello", true},
		{"empty", "  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Fetch(context.Background(), tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("payload mismatch")
			}
		})
	}
}

func TestPreparePhoto(t *testing.T) {
	tests := []struct {
		name         string
		w, h, edge   int
		wantW, wantH int
	}{
		{"small kept", 40, 30, 100, 40, 30},
		{"wide shrunk", 300, 100, 150, 150, 50},
		{"tall shrunk", 100, 400, 200, 50, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := preparePhoto(pngBytes(t, tt.w, tt.h), tt.edge)
			if err != nil {
				t.Fatalf("prepare: %v", err)
			}
			if p.width != tt.wantW || p.height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", p.width, p.height, tt.wantW, tt.wantH)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(p.data))
			if err != nil {
				t.Fatalf("output is not jpeg: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("jpeg is %dx%d", cfg.Width, cfg.Height)
			}
		})
	}

	if _, err := preparePhoto([]byte("GIF89a nope"), 0); err == nil {
		t.Error("expected decode error")
	}
}
