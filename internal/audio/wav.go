package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeWAV wraps PCM16 little-endian samples in a canonical 44-byte RIFF/
// WAVE container. No pack repo vendors an audio container library, so this
// is implemented directly against encoding/binary; see DESIGN.md.
func EncodeWAV(pcm []int16, sampleRate uint32, channels uint16) ([]byte, error) {
	const bitsPerSample = 16
	dataSize := len(pcm) * 2
	if dataSize < 0 || uint64(dataSize) > uint64(^uint32(0))-36 {
		return nil, fmt.Errorf("clip too large to encode as WAV: %d bytes", dataSize)
	}

	byteRate := sampleRate * uint32(channels) * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := new(bytes.Buffer)
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM format tag
	binary.Write(buf, binary.LittleEndian, channels)
	binary.Write(buf, binary.LittleEndian, sampleRate)
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(buf, binary.LittleEndian, pcm)

	return buf.Bytes(), nil
}
