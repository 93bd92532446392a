package formats

import (
	"bytes"
	"math"
	"strconv"
)

// XYZFieldCount is the number of leading columns an XYZ scan line must carry.
const XYZFieldCount = 7

// XYZRecord is one parsed line of an ASCII scan: "x y z intensity r g b".
// Colors are raw 0-255 channel values; Intensity is the value as written.
type XYZRecord struct {
	X, Y, Z   float32
	Intensity float32
	R, G, B   int
}

// ParseXYZLine parses a whitespace separated scan line.
// Returns false if fewer than XYZFieldCount leading fields parse or a float
// field is NaN or infinite. Extra trailing columns are ignored.
func ParseXYZLine(line []byte) (XYZRecord, bool) {
	var fields [XYZFieldCount][]byte
	n := 0
	for n < XYZFieldCount {
		line = bytes.TrimLeft(line, " \t\r\f\v")
		if len(line) == 0 {
			break
		}
		end := bytes.IndexAny(line, " \t\r\f\v")
		if end < 0 {
			end = len(line)
		}
		fields[n] = line[:end]
		line = line[end:]
		n++
	}
	if n < XYZFieldCount {
		return XYZRecord{}, false
	}

	var floats [4]float32
	for i := range floats {
		f, err := strconv.ParseFloat(string(fields[i]), 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return XYZRecord{}, false
		}
		floats[i] = float32(f)
	}

	var ints [3]int
	for i := range ints {
		v, err := strconv.Atoi(string(fields[4+i]))
		if err != nil {
			return XYZRecord{}, false
		}
		ints[i] = v
	}

	return XYZRecord{
		X: floats[0], Y: floats[1], Z: floats[2],
		Intensity: floats[3],
		R:         ints[0], G: ints[1], B: ints[2],
	}, true
}

// AppendXYZLine appends one "x y z intensity r g b\n" line with three decimals
// for the coordinates and integers for intensity and colors.
func AppendXYZLine(buf []byte, x, y, z float32, intensity uint32, color [3]uint8) []byte {
	buf = strconv.AppendFloat(buf, float64(x), 'f', 3, 32)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, float64(y), 'f', 3, 32)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, float64(z), 'f', 3, 32)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, uint64(intensity), 10)
	for _, c := range color {
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(c), 10)
	}
	return append(buf, '\n')
}
