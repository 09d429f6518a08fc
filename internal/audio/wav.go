package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const headerSize = 44

// ErrNotWAV is returned when data does not start with a RIFF/WAVE header
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// Format describes linear PCM audio
type Format struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

// Speech is the format produced by the speech synthesizer and expected by
// the recognizer: mono 16-bit PCM at 16 kHz.
var Speech = Format{SampleRate: 16000, Channels: 1, BytesPerSample: 2}

// PCMToWAV wraps raw little-endian PCM into a canonical 44 byte WAV header
func PCMToWAV(pcm []byte, f Format) []byte {
	dataLen := len(pcm)

	buf := &bytes.Buffer{}
	buf.Grow(headerSize + dataLen)

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate*f.Channels*f.BytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels*f.BytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BytesPerSample*8))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}

// Silence returns a WAV holding d of silence
func Silence(d time.Duration, f Format) []byte {
	frames := int(d.Seconds() * float64(f.SampleRate))
	return PCMToWAV(make([]byte, frames*f.Channels*f.BytesPerSample), f)
}

// IsWAV reports whether data starts with a RIFF/WAVE header
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// ReadFormat walks the RIFF chunks of a WAV stream and returns the format
// declared by its "fmt " chunk.
func ReadFormat(data []byte) (Format, error) {
	if !IsWAV(data) {
		return Format{}, ErrNotWAV
	}

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if id == "fmt " {
			if size < 16 || body+16 > len(data) {
				return Format{}, fmt.Errorf("truncated fmt chunk")
			}
			channels := int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate := int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample := int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			return Format{
				SampleRate:     sampleRate,
				Channels:       channels,
				BytesPerSample: bitsPerSample / 8,
			}, nil
		}

		// chunks are padded to an even size
		offset = body + size + size%2
	}
	return Format{}, fmt.Errorf("no fmt chunk found")
}
