// Command pixrefdemo uploads a gradient to an in-memory GPU device, wraps
// it in a GPU pixel ref, deep-copies it on the device and writes the
// read-back of the copy to a PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/pixelref"
	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/gpu/memdev"
)

func main() {
	var (
		width   = flag.Int("width", 256, "image width")
		height  = flag.Int("height", 256, "image height")
		output  = flag.String("output", "pixelref.png", "output file")
		region  = flag.String("region", "", "read back only x,y,w,h of the copy")
		budget  = flag.Uint64("budget", memdev.DefaultBudgetMB, "device memory budget in MB")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		pixelref.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var subset *image.Rectangle
	if *region != "" {
		r, err := parseRegion(*region)
		if err != nil {
			log.Fatalf("Invalid -region: %v", err)
		}
		subset = &r
	}

	dev := memdev.New(memdev.WithBudget(*budget*1024*1024), memdev.WithName("pixrefdemo"))
	ctx, err := gpu.NewContext(dev)
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}
	defer ctx.Close()

	out, err := run(ctx, *width, *height, subset)
	if err != nil {
		log.Fatalf("Failed: %v", err)
	}
	if err := out.SavePNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Copy saved to %s (%dx%d)\n", *output, out.Width(), out.Height())
	log.Printf("%v, %v\n", ctx.Stats(), dev.Stats())
}

// run uploads a gradient, deep-copies it on the device and reads back the
// copy, or the subset of it.
func run(ctx *gpu.Context, width, height int, subset *image.Rectangle) (*pixelref.Bitmap, error) {
	src := pixelref.NewBitmap(pixelref.ConfigRGBA8888, width, height)
	if src == nil {
		return nil, fmt.Errorf("invalid size %dx%d", width, height)
	}
	drawGradient(src)

	tex, err := pixelref.UploadBitmap(ctx, src, gpu.TextureFlagRenderTarget)
	if err != nil {
		return nil, err
	}
	ref := pixelref.NewGPUPixelRef(tex)
	tex.Unref()
	defer ref.Unref()

	c := ref.DeepCopy(pixelref.ConfigBGRA8888)
	if c == nil {
		return nil, fmt.Errorf("deep copy of %v failed", tex)
	}
	defer c.Unref()

	var out pixelref.Bitmap
	if !c.(*pixelref.GPUPixelRef).ReadPixels(&out, subset) {
		return nil, fmt.Errorf("read-back of %v failed", c.Texture())
	}
	return &out, nil
}

func drawGradient(b *pixelref.Bitmap) {
	b.LockPixels()
	defer b.UnlockPixels()

	pix := b.Pixels()
	w, h := b.Width(), b.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*b.RowBytes() + x*4
			pix[i+0] = uint8(x * 255 / w)
			pix[i+1] = uint8(y * 255 / h)
			pix[i+2] = uint8(255 - x*255/w)
			pix[i+3] = 0xFF
		}
	}
}

func parseRegion(s string) (image.Rectangle, error) {
	var x, y, w, h int
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil {
		return image.Rectangle{}, fmt.Errorf("want x,y,w,h: %w", err)
	}
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("empty region %q", s)
	}
	return image.Rect(x, y, x+w, y+h), nil
}
