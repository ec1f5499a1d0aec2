package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAVProducesValidRIFFHeader(t *testing.T) {
	pcm := []int16{1, -1, 100, -100}
	data, err := EncodeWAV(pcm, 16000, 1)
	require.NoError(t, err)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, "data", string(data[36:40]))

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	assert.Equal(t, uint32(len(pcm)*2), dataSize)
	assert.Equal(t, len(data), 44+len(pcm)*2)
}

func TestEncodeWAVEmptyClipIsStillValid(t *testing.T) {
	data, err := EncodeWAV(nil, 16000, 1)
	require.NoError(t, err)
	assert.Len(t, data, 44)
}

func TestResampleIdentityWhenRatesMatch(t *testing.T) {
	pcm := []int16{10, 20, 30}
	out := Resample(pcm, 16000, 16000)
	assert.Equal(t, pcm, out)
}

func TestResampleUpsamplesToExpectedLength(t *testing.T) {
	pcm := make([]int16, 1000)
	for i := range pcm {
		pcm[i] = int16(i % 100)
	}
	out := Resample(pcm, 16000, 24000)
	assert.InDelta(t, 1500, len(out), 2)
}

func TestResampleNeverOverflowsInt16Range(t *testing.T) {
	pcm := []int16{32767, -32768, 32767, -32768}
	out := Resample(pcm, 8000, 24000)
	for _, s := range out {
		assert.GreaterOrEqual(t, int(s), -32768)
		assert.LessOrEqual(t, int(s), 32767)
	}
}

func TestSlugifyDeviceNameProducesStableLowercaseID(t *testing.T) {
	assert.Equal(t, "macbook-pro-microphone", slugifyDeviceName("MacBook Pro Microphone"))
	assert.Equal(t, "usb-audio-device", slugifyDeviceName("USB Audio Device!!"))
}
