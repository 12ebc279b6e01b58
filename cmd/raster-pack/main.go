// Command raster-pack converts raw flood-depth arrays into the compressed
// grid bundle the service ships: {out}/{return_period}/{return_period}-{n}.tif.
//
// Input files are raw row-major float32 little-endian depth arrays. With
// -inspect it decodes an existing bundle file and prints its shape and depth
// range instead.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
)

func main() {
	in := flag.String("in", "", "raw float32 depth file")
	out := flag.String("out", "", "output bundle path, e.g. rasters/rr02/rr02-5.tif")
	width := flag.Int("width", 0, "grid width in pixels")
	height := flag.Int("height", 0, "grid height in pixels")
	inspect := flag.String("inspect", "", "decode a bundle file and print its stats")
	flag.Parse()

	if *inspect != "" {
		if err := inspectGrid(*inspect); err != nil {
			log.Fatalf("inspect: %v", err)
		}
		return
	}

	if *in == "" || *out == "" || *width <= 0 || *height <= 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := pack(*in, *out, *width, *height); err != nil {
		log.Fatalf("pack: %v", err)
	}
}

func pack(in, out string, width, height int) error {
	raw, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	want := width * height * 4
	if len(raw) != want {
		return fmt.Errorf("%s: %d bytes, want %d for a %dx%d float32 grid",
			in, len(raw), want, width, height)
	}

	depths := make([]float32, width*height)
	for i := range depths {
		depths[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	grid := &raster.Grid{Width: width, Height: height, Depths: depths}
	if err := raster.WriteGridFile(out, grid); err != nil {
		return err
	}
	log.Printf("packed %s -> %s (%dx%d)", filepath.Base(in), out, width, height)
	return nil
}

func inspectGrid(path string) error {
	grid, err := raster.ReadGridFile(path)
	if err != nil {
		return err
	}

	var min, max float32 = math.MaxFloat32, 0
	wet := 0
	for _, d := range grid.Depths {
		if d > 0 {
			wet++
		}
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}

	fmt.Printf("%s: %dx%d, depth range [%.3f, %.3f] m, %d/%d wet pixels\n",
		path, grid.Width, grid.Height, min, max, wet, len(grid.Depths))
	return nil
}
