package audio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCMToWAV(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}

	wav := PCMToWAV(pcm, Speech)

	require.Len(t, wav, headerSize+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]), "byte rate")
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestSilence(t *testing.T) {
	wav := Silence(500*time.Millisecond, Speech)

	assert.Len(t, wav, headerSize+16000)
	for _, b := range wav[headerSize:] {
		if b != 0 {
			t.Fatalf("Expected silent samples, got %d", b)
		}
	}
}

func TestReadFormat(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		f := Format{SampleRate: 24000, Channels: 2, BytesPerSample: 2}

		got, err := ReadFormat(PCMToWAV(make([]byte, 8), f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	})

	t.Run("skips unknown chunks", func(t *testing.T) {
		wav := PCMToWAV(nil, Speech)
		list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
		withList := append(append(append([]byte{}, wav[:12]...), list...), wav[12:]...)

		got, err := ReadFormat(withList)
		require.NoError(t, err)
		assert.Equal(t, Speech, got)
	})

	t.Run("not a wav", func(t *testing.T) {
		_, err := ReadFormat([]byte("ID3\x03 definitely mp3"))
		assert.ErrorIs(t, err, ErrNotWAV)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := ReadFormat(PCMToWAV(nil, Speech)[:20])
		assert.Error(t, err)
	})
}
