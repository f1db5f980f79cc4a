// ABOUTME: Minimal RIFF/WAVE reading and writing for artifact previews
// ABOUTME: Decodes PCM into a mono envelope and synthesizes test tones

package waveform

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNotWAV is returned when data does not start with a RIFF/WAVE header
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// PCM is a decoded mono signal in the range [-1, 1]
type PCM struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playback length of the signal
func (p PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}

	return float64(len(p.Samples)) / float64(p.SampleRate)
}

type fmtChunk struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// DecodeWAV parses 8/16/24/32-bit integer PCM and mixes all channels down to mono
func DecodeWAV(data []byte) (PCM, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return PCM{}, ErrNotWAV
	}

	var (
		format  *fmtChunk
		payload []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		end := body + size
		if end > len(data) || end < body {
			// Truncated final chunk; keep what is there
			end = len(data)
		}

		switch id {
		case "fmt ":
			var f fmtChunk
			if err := binary.Read(bytes.NewReader(data[body:end]), binary.LittleEndian, &f); err != nil {
				return PCM{}, fmt.Errorf("failed to read fmt chunk: %w", err)
			}

			format = &f
		case "data":
			payload = data[body:end]
		}

		// Chunks are word aligned
		pos = end + (size & 1)
	}

	if format == nil {
		return PCM{}, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}

	if format.AudioFormat != formatPCM && format.AudioFormat != formatExtensible {
		return PCM{}, fmt.Errorf("unsupported wav format %d", format.AudioFormat)
	}

	if format.Channels == 0 || format.SampleRate == 0 {
		return PCM{}, fmt.Errorf("invalid wav header: %d channels at %d Hz", format.Channels, format.SampleRate)
	}

	width := int(format.BitsPerSample) / 8
	if width < 1 || width > 4 {
		return PCM{}, fmt.Errorf("unsupported sample width %d bits", format.BitsPerSample)
	}

	channels := int(format.Channels)
	frame := width * channels
	frames := len(payload) / frame

	samples := make([]float64, frames)

	for i := range frames {
		var sum float64

		for ch := range channels {
			off := i*frame + ch*width
			sum += sampleAt(payload[off:off+width], width)
		}

		samples[i] = sum / float64(channels)
	}

	return PCM{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}

// sampleAt converts one little-endian integer sample to [-1, 1]
func sampleAt(b []byte, width int) float64 {
	switch width {
	case 1:
		// 8-bit PCM is unsigned
		return (float64(b[0]) - 128) / 128
	case 2:
		return float64(int16(binary.LittleEndian.Uint16(b))) / math.MaxInt16
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}

		return float64(v) / 0x7FFFFF
	default:
		return float64(int32(binary.LittleEndian.Uint32(b))) / math.MaxInt32
	}
}

// Tone describes a synthesized test signal
type Tone struct {
	Frequency  float64 // Hz
	Seconds    float64
	SampleRate int
	// Swell shapes the amplitude with a slow sine so the waveform has visible structure
	Swell float64
}

// WriteTone writes a 16-bit mono PCM WAV file containing the tone
func WriteTone(w io.Writer, t Tone) error {
	if t.SampleRate <= 0 {
		t.SampleRate = 22050
	}

	frames := int(t.Seconds * float64(t.SampleRate))
	if frames < 0 {
		frames = 0
	}

	samples := make([]float64, frames)
	for i := range samples {
		at := float64(i) / float64(t.SampleRate)
		amp := 0.6
		if t.Swell > 0 {
			amp = 0.35 + 0.3*math.Abs(math.Sin(2*math.Pi*t.Swell*at))
		}

		samples[i] = amp * math.Sin(2*math.Pi*t.Frequency*at)
	}

	return WritePCM(w, PCM{Samples: samples, SampleRate: t.SampleRate})
}

// WritePCM writes the signal as a 16-bit mono PCM WAV file
func WritePCM(w io.Writer, p PCM) error {
	dataSize := uint32(len(p.Samples) * 2)

	header := struct {
		RIFF     [4]byte
		Size     uint32
		WAVE     [4]byte
		FmtID    [4]byte
		FmtSize  uint32
		Format   fmtChunk
		DataID   [4]byte
		DataSize uint32
	}{
		RIFF:    [4]byte{'R', 'I', 'F', 'F'},
		Size:    36 + dataSize,
		WAVE:    [4]byte{'W', 'A', 'V', 'E'},
		FmtID:   [4]byte{'f', 'm', 't', ' '},
		FmtSize: 16,
		Format: fmtChunk{
			AudioFormat:   formatPCM,
			Channels:      1,
			SampleRate:    uint32(p.SampleRate),
			ByteRate:      uint32(p.SampleRate * 2),
			BlockAlign:    2,
			BitsPerSample: 16,
		},
		DataID:   [4]byte{'d', 'a', 't', 'a'},
		DataSize: dataSize,
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}

	buf := make([]byte, dataSize)
	for i, s := range p.Samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*math.MaxInt16)))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}

	return nil
}

// Mix sums signals with per-signal gains, padding shorter ones with silence,
// and normalizes the result when it clips
func Mix(signals []PCM, gains []float64) (PCM, error) {
	if len(signals) != len(gains) {
		return PCM{}, fmt.Errorf("number of tracks (%d) must match number of mix ratios (%d)", len(signals), len(gains))
	}

	if len(signals) == 0 {
		return PCM{}, errors.New("nothing to mix")
	}

	out := PCM{SampleRate: signals[0].SampleRate}

	for i, sig := range signals {
		if len(sig.Samples) > len(out.Samples) {
			out.Samples = append(out.Samples, make([]float64, len(sig.Samples)-len(out.Samples))...)
		}

		for j, s := range sig.Samples {
			out.Samples[j] += s * gains[i]
		}
	}

	var peak float64
	for _, s := range out.Samples {
		peak = math.Max(peak, math.Abs(s))
	}

	if peak > 1 {
		for i := range out.Samples {
			out.Samples[i] /= peak
		}
	}

	return out, nil
}
