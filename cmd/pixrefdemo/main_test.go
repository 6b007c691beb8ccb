package main

import (
	"image"
	"testing"

	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/gpu/memdev"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Rectangle
		wantErr bool
	}{
		{"10,10,20,20", image.Rect(10, 10, 30, 30), false},
		{"0,0,1,2", image.Rect(0, 0, 1, 2), false},
		{"1,2,3", image.Rectangle{}, true},
		{"0,0,0,5", image.Rectangle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRegion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRegion(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseRegion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	ctx, err := gpu.NewContext(memdev.New())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	subset := image.Rect(10, 10, 30, 30)
	out, err := run(ctx, 64, 64, &subset)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Width() != 20 || out.Height() != 20 {
		t.Errorf("output = %dx%d, want 20x20", out.Width(), out.Height())
	}
	if live := ctx.Stats().LiveSurfaces; live != 0 {
		t.Errorf("LiveSurfaces = %d after run, want 0", live)
	}
}
