package main

import (
	"bytes"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
)

// pngPresenter keeps the last frame in memory and serves it as a scaled PNG,
// so the panel can be watched from a browser when no OLED is attached.
type pngPresenter struct {
	mu     sync.Mutex
	img    *image.Gray
	scale  int
	logger *slog.Logger
}

func newPNGPresenter(width, height, scale int, logger *slog.Logger) *pngPresenter {
	if scale < 1 {
		scale = 1
	}
	p := &pngPresenter{
		img:    image.NewGray(image.Rect(0, 0, width, height)),
		scale:  scale,
		logger: logger,
	}
	renderFrame(p.img, Frame{Status: "Starting..."})
	return p
}

func (p *pngPresenter) Present(f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	renderFrame(p.img, f)
	return nil
}

// snapshot returns the current frame scaled up for viewing.
func (p *pngPresenter) snapshot() *gg.Context {
	p.mu.Lock()
	src := image.NewGray(p.img.Rect)
	copy(src.Pix, p.img.Pix)
	p.mu.Unlock()

	b := src.Bounds()
	c := gg.NewContext(b.Dx()*p.scale, b.Dy()*p.scale)
	c.SetRGB(0, 0, 0)
	c.Clear()
	c.Scale(float64(p.scale), float64(p.scale))
	c.DrawImage(src, 0, 0)
	return c
}

// ServeHTTP writes nothing until the PNG is fully encoded.
func (p *pngPresenter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := p.snapshot().EncodePNG(&buf); err != nil {
		p.logger.Warn("display png encode failed", "error", err)
		http.Error(w, "display encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		p.logger.Debug("display png write failed", "error", err)
	}
}
