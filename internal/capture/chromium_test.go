package capture

import (
	"context"
	"testing"
	"time"
)

func TestViewportFor(t *testing.T) {
	tests := []struct {
		w, h, axis   int
		wantW, wantH int
	}{
		{360, 94, 40, 394, 230},
		{60, 52, 40, 320, 200},
		{0, 0, 0, 320, 200},
		{365 * 60, 52, 40, maxViewport, 200},
		{100, 300, 40, 320, 436},
		{600, 40000, 40, 634, maxViewport},
	}
	for _, tt := range tests {
		gw, gh := ViewportFor(tt.w, tt.h, tt.axis)
		if gw != tt.wantW || gh != tt.wantH {
			t.Errorf("ViewportFor(%d,%d,%d) = %d,%d, want %d,%d", tt.w, tt.h, tt.axis, gw, gh, tt.wantW, tt.wantH)
		}
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/timeline", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != 30*time.Second {
		t.Fatalf("defaults = %+v", o)
	}

	if err := (&Options{OutputPath: "x.png"}).normalize(); err == nil {
		t.Fatalf("missing URL accepted")
	}
	if err := (&Options{URL: "http://x"}).normalize(); err == nil {
		t.Fatalf("missing output accepted")
	}
}

func TestCapturePNGRejectsBadOptions(t *testing.T) {
	// Validation happens before a browser is started.
	if err := CapturePNG(context.Background(), Options{}); err == nil {
		t.Fatalf("empty options accepted")
	}
}
