package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// createTestPCB builds a PCB container by hand, independent of WritePCB.
func createTestPCB(declared uint32, records []PCBRecord) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("PCB1")
	binary.Write(buf, binary.LittleEndian, declared)
	for _, r := range records {
		binary.Write(buf, binary.LittleEndian, r.Position)
		binary.Write(buf, binary.LittleEndian, r.Intensity)
		buf.Write(r.Color[:])
	}
	return buf.Bytes()
}

func testRecords() []PCBRecord {
	return []PCBRecord{
		{Position: [3]float32{1.5, -2.25, 3}, Intensity: 500, Color: [3]uint8{255, 0, 128}},
		{Position: [3]float32{0, 0, 0}, Intensity: 0, Color: [3]uint8{0, 0, 0}},
		{Position: [3]float32{-1e6, 1e-3, 42}, Intensity: 1000, Color: [3]uint8{1, 2, 3}},
	}
}

func TestPCBRecordLayout(t *testing.T) {
	rec := PCBRecord{Position: [3]float32{1, 2, 3}, Intensity: 0x01020304, Color: [3]uint8{7, 8, 9}}
	var buf [PCBRecordSize]byte
	EncodePCBRecord(buf[:], rec)

	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])); got != 2 {
		t.Errorf("expected y at offset 4 to be 2, got %f", got)
	}
	if buf[12] != 0x04 || buf[15] != 0x01 {
		t.Errorf("expected little-endian intensity at offset 12, got % x", buf[12:16])
	}
	if buf[16] != 7 || buf[17] != 8 || buf[18] != 9 {
		t.Errorf("expected colors at offsets 16-18, got % x", buf[16:])
	}
	if got := DecodePCBRecord(buf[:]); got != rec {
		t.Errorf("decode mismatch: got %+v, want %+v", got, rec)
	}
}

func TestParsePCB_ValidFile(t *testing.T) {
	records := testRecords()
	data := createTestPCB(uint32(len(records)), records)

	if len(data) != PCBHeaderSize+len(records)*PCBRecordSize {
		t.Fatalf("unexpected fixture size %d", len(data))
	}

	pcb, err := ParsePCB(data)
	if err != nil {
		t.Fatalf("ParsePCB failed: %v", err)
	}
	if len(pcb.Records) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(pcb.Records))
	}
	for i := range records {
		if pcb.Records[i] != records[i] {
			t.Errorf("record %d: got %+v, want %+v", i, pcb.Records[i], records[i])
		}
	}
}

func TestWritePCB_MatchesHandBuilt(t *testing.T) {
	records := testRecords()
	var buf bytes.Buffer
	if err := WritePCB(&buf, records); err != nil {
		t.Fatalf("WritePCB failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), createTestPCB(uint32(len(records)), records)) {
		t.Error("WritePCB output differs from the documented layout")
	}
}

func TestParsePCB_Empty(t *testing.T) {
	pcb, err := ParsePCB(createTestPCB(0, nil))
	if err != nil {
		t.Fatalf("ParsePCB failed: %v", err)
	}
	if len(pcb.Records) != 0 {
		t.Errorf("expected no records, got %d", len(pcb.Records))
	}
}

func TestParsePCB_InvalidMagic(t *testing.T) {
	data := createTestPCB(1, testRecords()[:1])
	copy(data, "XXXX")

	_, err := ParsePCB(data)
	if !errors.Is(err, ErrInvalidPCBMagic) {
		t.Errorf("expected ErrInvalidPCBMagic, got %v", err)
	}
}

func TestParsePCB_TruncatedData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedPCBData},
		{"magic only", []byte("PCB1"), ErrTruncatedPCBData},
		{"short wrong magic", []byte("XY"), ErrInvalidPCBMagic},
		{"missing records", createTestPCB(3, testRecords()[:2]), ErrTruncatedPCBData},
		{"partial record", createTestPCB(1, testRecords()[:1])[:PCBHeaderSize+10], ErrTruncatedPCBData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePCB(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodePCBRecords_IgnoresPartialTail(t *testing.T) {
	records := testRecords()
	body := createTestPCB(uint32(len(records)), records)[PCBHeaderSize:]
	body = append(body, 1, 2, 3)

	got := DecodePCBRecords(body, nil)
	if len(got) != len(records) {
		t.Errorf("expected %d records, got %d", len(records), len(got))
	}
}
