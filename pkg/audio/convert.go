package audio

import "encoding/binary"

// Int16ToFloat32 converts little-endian 16-bit signed PCM bytes to float32
// samples in [-1, 1]. Odd trailing bytes are ignored.
func Int16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToInt16LE converts float32 samples in [-1, 1] to little-endian
// 16-bit signed PCM bytes, clamping out-of-range values. Used when handing
// audio to transports that expect integer PCM (e.g. WAV payloads).
func Float32ToInt16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := f * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// ResampleMonoF32 resamples mono float32 samples from srcRate to dstRate
// using linear interpolation. If the rates match (or the input is too short
// to interpolate), the input is returned unchanged.
func ResampleMonoF32(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}

	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}
