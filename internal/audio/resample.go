package audio

// Resample linearly interpolates pcm from fromRate to toRate, clamping each
// interpolated value back into the int16 range. Grounded on the realtime
// transcription client's need to present 24kHz audio regardless of the
// capture device's native rate; no pack repo vendors a resampling library,
// so this is implemented directly against the standard library (see
// DESIGN.md).
func Resample(pcm []int16, fromRate, toRate uint32) []int16 {
	if fromRate == toRate || len(pcm) == 0 {
		out := make([]int16, len(pcm))
		copy(out, pcm)
		return out
	}

	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(pcm)) * ratio)
	if outLen < 1 {
		return nil
	}

	out := make([]int16, outLen)
	step := float64(fromRate) / float64(toRate)
	for i := range out {
		srcPos := float64(i) * step
		i0 := int(srcPos)
		i1 := i0 + 1
		frac := srcPos - float64(i0)

		if i1 >= len(pcm) {
			i1 = len(pcm) - 1
		}
		if i0 >= len(pcm) {
			i0 = len(pcm) - 1
		}

		interpolated := float64(pcm[i0])*(1-frac) + float64(pcm[i1])*frac
		out[i] = clampInt16(interpolated)
	}
	return out
}

func clampInt16(v float64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
