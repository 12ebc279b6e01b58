package raster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// Grid file format, snappy-compressed row-major float32 little-endian depths:
//
//	[Magic:4 "FDG1"][Width:4][Height:4][PayloadLen:4][Payload:N][Checksum:4]
//
// The checksum is CRC32 (IEEE) over the compressed payload.
var gridMagic = [4]byte{'F', 'D', 'G', '1'}

// EncodeGrid writes a grid to w in the shipped raster format.
func EncodeGrid(w io.Writer, g *Grid) error {
	if g.Width <= 0 || g.Height <= 0 || len(g.Depths) != g.Width*g.Height {
		return fmt.Errorf("%w: %dx%d grid with %d samples", ErrDecodeFailed, g.Width, g.Height, len(g.Depths))
	}

	raw := make([]byte, len(g.Depths)*4)
	for i, d := range g.Depths {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(d))
	}
	payload := snappy.Encode(nil, raw)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(gridMagic[:]); err != nil {
		return err
	}
	for _, v := range []uint32{uint32(g.Width), uint32(g.Height), uint32(len(payload))} {
		if err := binary.Write(bw, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := bw.Write(payload); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, crc32.ChecksumIEEE(payload)); err != nil {
		return err
	}
	return bw.Flush()
}

// DecodeGrid reads a grid in the shipped raster format. A corrupt or truncated
// file fails with ErrDecodeFailed; no partial grid is ever returned.
func DecodeGrid(r io.Reader) (*Grid, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrDecodeFailed, err)
	}
	if magic != gridMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrDecodeFailed, magic[:])
	}

	var width, height, payloadLen uint32
	for _, p := range []*uint32{&width, &height, &payloadLen} {
		if err := binary.Read(br, binary.BigEndian, p); err != nil {
			return nil, fmt.Errorf("%w: header: %v", ErrDecodeFailed, err)
		}
	}
	if width == 0 || height == 0 || payloadLen == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrDecodeFailed)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrDecodeFailed, err)
	}

	var checksum uint32
	if err := binary.Read(br, binary.BigEndian, &checksum); err != nil {
		return nil, fmt.Errorf("%w: checksum: %v", ErrDecodeFailed, err)
	}
	if crc32.ChecksumIEEE(payload) != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrDecodeFailed)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if len(raw) != int(width*height)*4 {
		return nil, fmt.Errorf("%w: payload size %d for %dx%d grid", ErrDecodeFailed, len(raw), width, height)
	}

	depths := make([]float32, width*height)
	for i := range depths {
		depths[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return &Grid{Width: int(width), Height: int(height), Depths: depths}, nil
}

// WriteGridFile encodes a grid to path, creating parent directories.
func WriteGridFile(path string, g *Grid) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeGrid(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGridFile decodes a grid from path. A missing file maps to ErrNotFound.
func ReadGridFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return DecodeGrid(f)
}
