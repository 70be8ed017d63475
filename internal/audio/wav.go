package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
)

// HeaderSize is the size of a canonical PCM WAV header.
const HeaderSize = 44

// ErrWriterFinalized is returned by Append and Finalize after the writer
// has already been finalized.
var ErrWriterFinalized = errors.New("wav: writer already finalized")

// Format describes the fixed PCM parameters of a recording. The browser
// client and the server agree on these out-of-band; frames on the wire
// carry raw sample bytes only.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Validate checks that the format is a PCM layout we can write.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("wav: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("wav: channel count must be positive, got %d", f.Channels)
	}
	if f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("wav: bits per sample must be a positive multiple of 8, got %d", f.BitsPerSample)
	}
	return nil
}

// ByteRate returns bytes of PCM data per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// BlockAlign returns bytes per sample frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// wavHeader is the canonical 44-byte PCM WAV header.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // number of bytes in the data chunk
}

func newHeader(f Format, dataSize uint32) wavHeader {
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.ByteRate()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// Info describes a finalized recording file.
type Info struct {
	Path      string
	Size      int64   // total file size including header
	DataBytes int64   // PCM payload bytes
	Duration  float64 // seconds, DataBytes / ByteRate
}

// Writer incrementally assembles one WAV file from an ordered stream of
// raw PCM frames. The size fields in the header are written as zero on
// open and patched in place on Finalize, so an interrupted write leaves
// a parseable (zero-duration) container rather than garbage.
//
// The Writer owns the destination file exclusively between NewWriter and
// Finalize. Append and Finalize are safe for concurrent use, though the
// streaming endpoint only ever calls them from a single goroutine.
type Writer struct {
	mu        sync.Mutex
	f         *os.File
	path      string
	format    Format
	dataBytes int64
	finalized bool
}

// NewWriter creates (or truncates) path and writes a placeholder header.
func NewWriter(path string, format Format) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: create %s: %w", path, err)
	}
	if err := binary.Write(f, binary.LittleEndian, newHeader(format, 0)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	return &Writer{f: f, path: path, format: format}, nil
}

// Append writes one frame of raw PCM bytes at the end of the data chunk.
// Frames may be of any size, including empty.
func (w *Writer) Append(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrWriterFinalized
	}
	if len(frame) == 0 {
		return nil
	}
	n, err := w.f.Write(frame)
	w.dataBytes += int64(n)
	if err != nil {
		return fmt.Errorf("wav: append: %w", err)
	}
	return nil
}

// DataBytes returns the number of PCM bytes appended so far.
func (w *Writer) DataBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataBytes
}

// Finalize patches the header size fields, flushes and closes the file.
// The second and any later call returns ErrWriterFinalized without
// touching the file.
func (w *Writer) Finalize() (Info, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return Info{}, ErrWriterFinalized
	}
	w.finalized = true

	if _, err := w.f.Seek(0, 0); err != nil {
		_ = w.f.Close()
		return Info{}, fmt.Errorf("wav: seek header: %w", err)
	}
	if err := binary.Write(w.f, binary.LittleEndian, newHeader(w.format, uint32(w.dataBytes))); err != nil {
		_ = w.f.Close()
		return Info{}, fmt.Errorf("wav: patch header: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return Info{}, fmt.Errorf("wav: sync: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return Info{}, fmt.Errorf("wav: close: %w", err)
	}
	return Info{
		Path:      w.path,
		Size:      HeaderSize + w.dataBytes,
		DataBytes: w.dataBytes,
		Duration:  float64(w.dataBytes) / float64(w.format.ByteRate()),
	}, nil
}

// ReadInfo parses the header of a WAV file and returns its format and
// duration.
func ReadInfo(path string) (Format, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Format{}, Info{}, err
	}
	if len(data) < HeaderSize {
		return Format{}, Info{}, fmt.Errorf("wav: %s too short: need at least %d bytes, got %d", path, HeaderSize, len(data))
	}
	var h wavHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return Format{}, Info{}, fmt.Errorf("wav: read header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return Format{}, Info{}, fmt.Errorf("wav: %s is not a RIFF/WAVE file", path)
	}
	if string(h.Subchunk1ID[:]) != "fmt " || string(h.Subchunk2ID[:]) != "data" {
		return Format{}, Info{}, fmt.Errorf("wav: %s has unexpected chunk layout", path)
	}
	if h.AudioFormat != 1 {
		return Format{}, Info{}, fmt.Errorf("wav: unsupported audio format %d (only PCM)", h.AudioFormat)
	}
	f := Format{
		SampleRate:    int(h.SampleRate),
		Channels:      int(h.NumChannels),
		BitsPerSample: int(h.BitsPerSample),
	}
	if err := f.Validate(); err != nil {
		return Format{}, Info{}, err
	}
	return f, Info{
		Path:      path,
		Size:      int64(len(data)),
		DataBytes: int64(h.Subchunk2Size),
		Duration:  float64(h.Subchunk2Size) / float64(f.ByteRate()),
	}, nil
}
