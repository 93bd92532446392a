package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// PCB layout constants.
const (
	PCBMagic      = "PCB1"
	PCBHeaderSize = 8  // magic + uint32 point count
	PCBRecordSize = 19 // 3x float32 + uint32 + 3x uint8
)

// PCB format errors.
var (
	ErrInvalidPCBMagic  = errors.New("invalid PCB magic: expected 'PCB1'")
	ErrTruncatedPCBData = errors.New("truncated PCB data")
)

// PCBRecord is a single point as stored in a PCB container.
type PCBRecord struct {
	Position  [3]float32
	Intensity uint32 // intensity * 1000
	Color     [3]uint8
}

// PCB is a fully parsed PCB container.
type PCB struct {
	Records []PCBRecord
}

// EncodePCBRecord writes rec into dst, which must hold at least PCBRecordSize bytes.
func EncodePCBRecord(dst []byte, rec PCBRecord) {
	_ = dst[PCBRecordSize-1]
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(rec.Position[0]))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(rec.Position[1]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(rec.Position[2]))
	binary.LittleEndian.PutUint32(dst[12:], rec.Intensity)
	dst[16] = rec.Color[0]
	dst[17] = rec.Color[1]
	dst[18] = rec.Color[2]
}

// DecodePCBRecord reads one record from src, which must hold at least PCBRecordSize bytes.
func DecodePCBRecord(src []byte) PCBRecord {
	_ = src[PCBRecordSize-1]
	return PCBRecord{
		Position: [3]float32{
			math.Float32frombits(binary.LittleEndian.Uint32(src[0:])),
			math.Float32frombits(binary.LittleEndian.Uint32(src[4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(src[8:])),
		},
		Intensity: binary.LittleEndian.Uint32(src[12:]),
		Color:     [3]uint8{src[16], src[17], src[18]},
	}
}

// DecodePCBRecords decodes every whole record in block and appends them to dst.
// Trailing bytes that do not form a whole record are ignored.
func DecodePCBRecords(block []byte, dst []PCBRecord) []PCBRecord {
	n := len(block) / PCBRecordSize
	for i := 0; i < n; i++ {
		dst = append(dst, DecodePCBRecord(block[i*PCBRecordSize:]))
	}
	return dst
}

// WritePCBHeader writes the magic and point count.
func WritePCBHeader(w io.Writer, count uint32) error {
	var hdr [PCBHeaderSize]byte
	copy(hdr[:4], PCBMagic)
	binary.LittleEndian.PutUint32(hdr[4:], count)
	_, err := w.Write(hdr[:])
	return err
}

// ReadPCBHeader reads and validates the magic and returns the point count.
func ReadPCBHeader(r io.Reader) (uint32, error) {
	var hdr [PCBHeaderSize]byte
	n, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// A short file may still carry a wrong magic; report that first.
			if !strings.HasPrefix(PCBMagic, string(hdr[:min(n, 4)])) {
				return 0, ErrInvalidPCBMagic
			}
			return 0, fmt.Errorf("%w: reading header", ErrTruncatedPCBData)
		}
		return 0, err
	}
	if string(hdr[:4]) != PCBMagic {
		return 0, ErrInvalidPCBMagic
	}
	return binary.LittleEndian.Uint32(hdr[4:]), nil
}

// WritePCB writes a complete container holding records.
func WritePCB(w io.Writer, records []PCBRecord) error {
	if uint64(len(records)) > math.MaxUint32 {
		return fmt.Errorf("too many PCB records: %d", len(records))
	}
	if err := WritePCBHeader(w, uint32(len(records))); err != nil {
		return err
	}
	var buf [PCBRecordSize]byte
	for _, rec := range records {
		EncodePCBRecord(buf[:], rec)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// ParsePCB parses a PCB container from raw bytes.
func ParsePCB(data []byte) (*PCB, error) {
	count, err := ReadPCBHeader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	body := data[PCBHeaderSize:]
	need := uint64(count) * PCBRecordSize
	if uint64(len(body)) < need {
		return nil, fmt.Errorf("%w: header declares %d points, found %d",
			ErrTruncatedPCBData, count, len(body)/PCBRecordSize)
	}

	return &PCB{
		Records: DecodePCBRecords(body[:need], make([]PCBRecord, 0, count)),
	}, nil
}
