package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/neurlang/fwlearn/model"
	"github.com/neurlang/fwlearn/regressor"
)

var byteOrder = binary.LittleEndian

// maxPayload is the size of the largest payload Save can produce for a
// regressor of 1<<bits slots: the bitmap length, a roaring bitmap holding
// every slot, then 8 bytes per slot.
func maxPayload(bits uint8) uint64 {
	var slots = uint64(1) << bits
	var containers = (slots + 1<<16 - 1) >> 16
	// cookie, run flags, per container key, cardinality, offset and at most 8 KiB of data
	var bitmap = 8 + (containers+7)/8 + containers*(8+8192)
	return 4 + bitmap + 8*slots
}

// maxCompressed bounds the zstd frame of a payload of maxPayload(bits) bytes
func maxCompressed(bits uint8) uint64 {
	var n = maxPayload(bits)
	return n + n>>10 + 64
}

// Save writes the state of rr to w
func Save(w io.Writer, rr *regressor.Regressor, mi *model.Instance) error {
	var weights, gradientSqr = rr.Weights(), rr.GradientSqr()

	var touched = roaring.New()
	for slot := range weights {
		if math.Float32bits(weights[slot]) != 0 || math.Float32bits(gradientSqr[slot]) != 0 {
			touched.Add(uint32(slot))
		}
	}
	touched.RunOptimize()
	bitmap, err := touched.ToBytes()
	if err != nil {
		return fmt.Errorf("serialize slot bitmap: %w", err)
	}

	var payload = make([]byte, 0, 4+len(bitmap)+8*int(touched.GetCardinality()))
	payload = byteOrder.AppendUint32(payload, uint32(len(bitmap)))
	payload = append(payload, bitmap...)
	var it = touched.Iterator()
	for it.HasNext() {
		var slot = it.Next()
		payload = byteOrder.AppendUint32(payload, math.Float32bits(weights[slot]))
		payload = byteOrder.AppendUint32(payload, math.Float32bits(gradientSqr[slot]))
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	var compressed = enc.EncodeAll(payload, nil)
	enc.Close()

	var header = FileHeader{
		Magic:          MagicNumber,
		Version:        Version,
		HashBits:       rr.HashBits(),
		LearningRate:   mi.LearningRate,
		PowerT:         mi.PowerT,
		Touched:        uint32(touched.GetCardinality()),
		CompressedSize: uint32(len(compressed)),
		Checksum:       crc32.ChecksumIEEE(payload),
	}
	if err := binary.Write(w, byteOrder, &header); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	return &header, nil
}

// Load reads a regressor saved by Save. The stored hash_bits must match
// mi.HashBits, the learning parameters come from mi.
func Load(r io.Reader, mi *model.Instance) (*regressor.Regressor, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if header.HashBits != mi.HashBits {
		return nil, fmt.Errorf("%w: file has %d, model has %d", ErrHashBitsMismatch, header.HashBits, mi.HashBits)
	}

	if uint64(header.CompressedSize) > maxCompressed(header.HashBits) {
		return nil, fmt.Errorf("%w: compressed size %d too large for %d hash bits", ErrCorrupt, header.CompressedSize, header.HashBits)
	}
	// grows with the input, a short file cannot force a large allocation
	compressed, err := io.ReadAll(io.LimitReader(r, int64(header.CompressedSize)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(compressed) != int(header.CompressedSize) {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, io.ErrUnexpectedEOF)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxPayload(header.HashBits)))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	payload, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != header.Checksum {
		return nil, fmt.Errorf("%w: expected 0x%08x, got 0x%08x", ErrChecksum, header.Checksum, sum)
	}

	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: payload too short", ErrCorrupt)
	}
	var bitmapLen = int(byteOrder.Uint32(payload))
	payload = payload[4:]
	if bitmapLen > len(payload) {
		return nil, fmt.Errorf("%w: bitmap length %d exceeds payload", ErrCorrupt, bitmapLen)
	}
	var touched = roaring.New()
	if err := touched.UnmarshalBinary(payload[:bitmapLen]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	payload = payload[bitmapLen:]
	if touched.GetCardinality() != uint64(header.Touched) || len(payload) != 8*int(header.Touched) {
		return nil, fmt.Errorf("%w: expected %d slots", ErrCorrupt, header.Touched)
	}

	var rr = regressor.New(mi)
	var weights, gradientSqr = rr.Weights(), rr.GradientSqr()
	if !touched.IsEmpty() && int(touched.Maximum()) >= len(weights) {
		return nil, fmt.Errorf("%w: slot %d out of range", ErrCorrupt, touched.Maximum())
	}
	var it = touched.Iterator()
	for it.HasNext() {
		var slot = it.Next()
		weights[slot] = math.Float32frombits(byteOrder.Uint32(payload))
		gradientSqr[slot] = math.Float32frombits(byteOrder.Uint32(payload[4:]))
		payload = payload[8:]
	}
	return rr, nil
}

// SaveFile writes the state of rr to path, replacing it atomically
func SaveFile(path string, rr *regressor.Regressor, mi *model.Instance) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	var bw = bufio.NewWriter(tmp)
	if err := Save(bw, rr, mi); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a regressor saved by SaveFile
func LoadFile(path string, mi *model.Instance) (*regressor.Regressor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rr, err := Load(bytes.NewReader(data), mi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rr, nil
}
