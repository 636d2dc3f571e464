// Package model defines the serialized asset container consumed by the
// stage runners. An asset wraps an opaque inference graph in a small
// versioned binary header declaring the tensor shapes the converter baked
// into the graph.
package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic identifies the asset container format.
var Magic = [4]byte{'A', 'N', 'P', 'M'}

// SchemaVersion is the container schema this code understands.
const SchemaVersion = 1

const maxRank = 8

// ErrBadMagic is returned when the asset does not start with the expected
// magic bytes.
var ErrBadMagic = errors.New("not an ANPM model asset")

// ErrSchemaVersion is returned when the asset declares an unsupported
// schema version.
var ErrSchemaVersion = errors.New("unsupported asset schema version")

// Asset is an immutable parsed model asset. Graph is the opaque serialized
// inference graph handed to the execution engine.
type Asset struct {
	Version     uint32
	InputShape  []int64
	OutputShape []int64
	Graph       []byte
}

// InputLen returns the number of float32 elements in the input tensor.
func (a *Asset) InputLen() int { return numElements(a.InputShape) }

// OutputLen returns the number of float32 elements in the output tensor.
func (a *Asset) OutputLen() int { return numElements(a.OutputShape) }

func numElements(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

// Parse decodes an asset from raw bytes. The graph payload is referenced,
// not copied; callers must treat the input as read-only afterwards.
func Parse(data []byte) (*Asset, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, version, SchemaVersion)
	}

	inShape, err := readShape(r)
	if err != nil {
		return nil, fmt.Errorf("read input shape: %w", err)
	}
	outShape, err := readShape(r)
	if err != nil {
		return nil, fmt.Errorf("read output shape: %w", err)
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return nil, fmt.Errorf("read payload length: %w", err)
	}
	if int(payloadLen) != r.Len() {
		return nil, fmt.Errorf("payload length %d does not match remaining %d bytes", payloadLen, r.Len())
	}
	graph := data[len(data)-int(payloadLen):]

	return &Asset{
		Version:     version,
		InputShape:  inShape,
		OutputShape: outShape,
		Graph:       graph,
	}, nil
}

// LoadFile reads and parses an asset from disk.
func LoadFile(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse asset %s: %w", path, err)
	}
	return a, nil
}

// Write serializes an asset. Used by conversion tooling and tests; the
// pipeline itself only reads assets.
func Write(w io.Writer, a *Asset) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	version := a.Version
	if version == 0 {
		version = SchemaVersion
	}
	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := writeShape(w, a.InputShape); err != nil {
		return err
	}
	if err := writeShape(w, a.OutputShape); err != nil {
		return err
	}
	if len(a.Graph) > int(^uint32(0)) {
		return errors.New("graph payload too large")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(a.Graph))); err != nil {
		return err
	}
	_, err := w.Write(a.Graph)
	return err
}

func readShape(r io.Reader) ([]int64, error) {
	var rank uint32
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return nil, err
	}
	if rank == 0 || rank > maxRank {
		return nil, fmt.Errorf("invalid tensor rank %d", rank)
	}
	shape := make([]int64, rank)
	for i := range shape {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return nil, err
		}
		if d == 0 {
			return nil, fmt.Errorf("dimension %d is zero", i)
		}
		shape[i] = int64(d)
	}
	return shape, nil
}

func writeShape(w io.Writer, shape []int64) error {
	if len(shape) == 0 || len(shape) > maxRank {
		return fmt.Errorf("invalid tensor rank %d", len(shape))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(shape))); err != nil {
		return err
	}
	for i, d := range shape {
		if d <= 0 || d > int64(^uint32(0)) {
			return fmt.Errorf("invalid dimension %d at index %d", d, i)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return err
		}
	}
	return nil
}
