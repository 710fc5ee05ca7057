package formats

import (
	"encoding/binary"
	"fmt"
	"math"
)

// KeyframeFloats is the length, in floats, of a keyframe record with no filler:
// time, scale (3), rotation (4), location (3) and one reserved word.
const KeyframeFloats = 12

// Keyframes are sampled at 30 fps; the next frame's timestamp must land in
// this open interval after the reference timestamp.
const (
	frameStepMin = 0.03
	frameStepMax = 0.04
)

// InferStride recovers the per-keyframe record length of a track, in floats.
//
// pos is the offset just past the first frame's fixed fields, which are
// fixed floats long, and refTime is that frame's timestamp. Candidate
// timestamps are read one float at a time from pos until one lies a frame
// step after refTime; the number of floats skipped plus fixed is the stride.
// A candidate is only accepted if frames records of that stride fit in buf.
//
// Tracks with fewer than two frames have nothing to calibrate against and
// get the minimum stride, fixed. buf is never modified.
func InferStride(buf []byte, pos int, refTime float32, fixed, frames int) (int, error) {
	if frames < 2 {
		return fixed, nil
	}

	frameStart := pos - fixed*4
	if fixed <= 0 || frameStart < 0 || pos > len(buf) {
		return 0, fmt.Errorf("%w: bad scan origin %d (fixed %d)", ErrUnresolvableStride, pos, fixed)
	}
	avail := int64(len(buf) - frameStart)

	for stride := fixed; ; stride++ {
		if int64(frames)*int64(stride)*4 > avail {
			return 0, fmt.Errorf("%w: no timestamp %.3f..%.3f after %f within %d frames from offset %d",
				ErrUnresolvableStride, frameStepMin, frameStepMax, refTime, frames, frameStart)
		}
		at := frameStart + stride*4
		t := math.Float32frombits(binary.LittleEndian.Uint32(buf[at:]))
		if d := float64(t) - float64(refTime); d > frameStepMin && d < frameStepMax {
			return stride, nil
		}
	}
}
