package faults

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when the element a fault targets is absent.
var ErrNotFound = errors.New("target element not found")

// preamble plus the "DICM" magic
const headerLen = 132

type element struct {
	group, elem uint16
	vr          string
}

var (
	pixelData    = element{0x7FE0, 0x0010, "OW"}
	pixelSpacing = element{0x0028, 0x0030, "DS"}
	patientName  = element{0x0010, 0x0010, "PN"}
	studyDate    = element{0x0008, 0x0020, "DA"}
)

// Apply damages the explicit VR little endian file at path in place.
func Apply(path string, t Type) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch t {
	case Truncated:
		data, err = truncatePixelData(data)
	case NoPixels:
		err = hide(data, pixelData)
	case OddLength:
		err = oddPixelLength(data)
	case MissingSpacing:
		err = hide(data, pixelSpacing)
	case MissingIdentity:
		if err = hide(data, patientName); err == nil {
			err = hide(data, studyDate)
		}
	default:
		err = fmt.Errorf("unknown fault type %q", t)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", t, path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// find returns the offset of the element header, matching tag and VR.
func find(data []byte, e element) int {
	for i := headerLen; i <= len(data)-12; i++ {
		if binary.LittleEndian.Uint16(data[i:]) == e.group &&
			binary.LittleEndian.Uint16(data[i+2:]) == e.elem &&
			string(data[i+4:i+6]) == e.vr {
			return i
		}
	}
	return -1
}

// hide moves an element to the private block of the next odd group, so
// readers no longer find it under its standard tag while the stream still
// parses.
func hide(data []byte, e element) error {
	i := find(data, e)
	if i < 0 {
		return ErrNotFound
	}
	binary.LittleEndian.PutUint16(data[i:], e.group|1)
	binary.LittleEndian.PutUint16(data[i+2:], 0x1000|(e.elem&0xFF))
	return nil
}

func pixelValue(data []byte) (start int, length uint32, err error) {
	i := find(data, pixelData)
	if i < 0 {
		return 0, 0, ErrNotFound
	}
	// OW uses the long form: VR(2) reserved(2) VL(4)
	return i + 12, binary.LittleEndian.Uint32(data[i+8:]), nil
}

func truncatePixelData(data []byte) ([]byte, error) {
	start, vl, err := pixelValue(data)
	if err != nil {
		return nil, err
	}
	cut := start + int(vl/2)
	if cut >= len(data) {
		return nil, fmt.Errorf("pixel data shorter than declared")
	}
	return data[:cut], nil
}

func oddPixelLength(data []byte) error {
	start, vl, err := pixelValue(data)
	if err != nil {
		return err
	}
	if vl < 2 || vl%2 != 0 {
		return fmt.Errorf("pixel data length %d is already odd", vl)
	}
	binary.LittleEndian.PutUint32(data[start-4:], vl-1)
	return nil
}
