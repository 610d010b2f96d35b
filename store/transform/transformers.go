package transform

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"context"
	"io"
)

// Transformers are the named Transformers available to FromConfig.
var Transformers = map[string]Transformer{
	"flate": Flate{Level: flate.DefaultCompression},
	"lzw":   LZW{Order: lzw.LSB},
}

// LZW is a Transformer implementing lzw compression.
type LZW struct {
	Order lzw.Order
}

// In implements Transformer.In.
func (l LZW) In(_ context.Context, inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := lzw.NewWriter(buf, l.Order, 8)
	if _, err := w.Write(inp); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Out implements Transformer.Out.
func (l LZW) Out(_ context.Context, inp []byte) ([]byte, error) {
	rr := lzw.NewReader(bytes.NewReader(inp), l.Order, 8)
	defer rr.Close()
	return io.ReadAll(rr)
}

// Flate is a Transformer implementing RFC1951 DEFLATE compression.
type Flate struct {
	Level int
}

// In implements Transformer.In.
func (f Flate) In(_ context.Context, inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	level := f.Level
	if level < -2 || level > 9 {
		level = flate.DefaultCompression
	}
	w, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(inp); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Out implements Transformer.Out.
func (f Flate) Out(_ context.Context, inp []byte) ([]byte, error) {
	rr := flate.NewReader(bytes.NewReader(inp))
	defer rr.Close()
	return io.ReadAll(rr)
}
