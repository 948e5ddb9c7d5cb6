package model

import "time"

// Frame is one complete JPEG image cut out of the camera stream.
// Data must not be modified once the frame has been published.
type Frame struct {
	Data      []byte
	Seq       uint64    // assigned by the frame store, starts at 1
	Timestamp time.Time // when the assembler finished the frame
}

// Size returns the encoded size of the frame in bytes.
func (f Frame) Size() int {
	return len(f.Data)
}
