package catalog

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeNPY writes a version-1 .npy file holding the given float32 matrix.
func writeNPY(t *testing.T, path, descr string, rows, cols int, values []float32) {
	t.Helper()

	header := "{'descr': '" + descr + "', 'fortran_order': False, 'shape': (" +
		itoa(rows) + ", " + itoa(cols) + "), }"

	buf := append([]byte{}, npyMagic...)
	buf = append(buf, 1, 0) // version 1.0
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(header)))
	buf = append(buf, header...)

	for _, v := range values {
		switch descr {
		case "<f2":
			buf = binary.LittleEndian.AppendUint16(buf, float32to16(v))
		case "<f4":
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		case "<f8":
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(v)))
		}
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("write npy: %v", err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// float32to16 narrows a float32 to IEEE 754 half precision. Only exercises
// values exactly representable in half precision.
func float32to16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23)&0xff - 127 + 15
	frac := uint16(bits >> 13 & 0x3ff)
	if bits&0x7fffffff == 0 {
		return sign
	}
	return sign | uint16(exp)<<10 | frac
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "tracks.csv")
	npyPath := filepath.Join(dir, "embeddings.npy")

	writeCSV(t, metaPath, "ytid,caption\nidA,a calm piano piece\nidB,fast drum and bass\n")
	writeNPY(t, npyPath, "<f4", 2, 3, []float32{1, 0, 0, 0, 1, 0})

	cat, err := Load(metaPath, npyPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cat.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cat.Len())
	}
	if cat.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3", cat.Dimension())
	}

	e := cat.Entry(1)
	if e.TrackID != "idB" {
		t.Errorf("Entry(1).TrackID = %q, want %q", e.TrackID, "idB")
	}
	if e.Caption != "fast drum and bass" {
		t.Errorf("Entry(1).Caption = %q", e.Caption)
	}
	if e.Embedding[1] != 1 {
		t.Errorf("Entry(1).Embedding = %v", e.Embedding)
	}
}

func TestLoad_ExtraColumns(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "tracks.csv")
	npyPath := filepath.Join(dir, "embeddings.npy")

	// Column order must not matter and extra columns are ignored.
	writeCSV(t, metaPath, "caption,aspect_list,ytid\nslow jazz,\"['jazz']\",idA\n")
	writeNPY(t, npyPath, "<f4", 1, 2, []float32{0.5, 0.5})

	cat, err := Load(metaPath, npyPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cat.Entry(0).TrackID; got != "idA" {
		t.Errorf("TrackID = %q, want %q", got, "idA")
	}
	if got := cat.Entry(0).Caption; got != "slow jazz" {
		t.Errorf("Caption = %q, want %q", got, "slow jazz")
	}
}

func TestLoad_Float16AndFloat64(t *testing.T) {
	for _, descr := range []string{"<f2", "<f8"} {
		t.Run(descr, func(t *testing.T) {
			dir := t.TempDir()
			metaPath := filepath.Join(dir, "tracks.csv")
			npyPath := filepath.Join(dir, "embeddings.npy")

			writeCSV(t, metaPath, "ytid,caption\nidA,x\n")
			writeNPY(t, npyPath, descr, 1, 4, []float32{1, -0.5, 0.25, 0})

			cat, err := Load(metaPath, npyPath)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			want := []float32{1, -0.5, 0.25, 0}
			for i, v := range cat.Entry(0).Embedding {
				if v != want[i] {
					t.Errorf("Embedding[%d] = %v, want %v", i, v, want[i])
				}
			}
		})
	}
}

func TestLoad_IntegrityErrors(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "tracks.csv")
	npyPath := filepath.Join(dir, "embeddings.npy")

	tests := []struct {
		name string
		csv  string
		rows int
	}{
		{"row count mismatch", "ytid,caption\nidA,x\nidB,y\nidC,z\n", 2},
		{"missing caption column", "ytid,title\nidA,x\n", 1},
		{"missing ytid column", "id,caption\nidA,x\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeCSV(t, metaPath, tt.csv)
			writeNPY(t, npyPath, "<f4", tt.rows, 2, make([]float32, tt.rows*2))

			_, err := Load(metaPath, npyPath)
			if !errors.Is(err, ErrDataIntegrity) {
				t.Errorf("Load() error = %v, want ErrDataIntegrity", err)
			}
		})
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "tracks.csv")
	writeCSV(t, metaPath, "ytid,caption\nidA,x\n")

	if _, err := Load(filepath.Join(dir, "nope.csv"), filepath.Join(dir, "nope.npy")); err == nil {
		t.Error("Load() with missing metadata should fail")
	}
	if _, err := Load(metaPath, filepath.Join(dir, "nope.npy")); err == nil {
		t.Error("Load() with missing embeddings should fail")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{
			name: "uniform dimension",
			entries: []Entry{
				{TrackID: "a", Embedding: []float32{1, 2}},
				{TrackID: "b", Embedding: []float32{3, 4}},
			},
		},
		{
			name:    "empty",
			wantErr: true,
		},
		{
			name: "zero dimension",
			entries: []Entry{
				{TrackID: "a", Embedding: nil},
			},
			wantErr: true,
		},
		{
			name: "ragged dimensions",
			entries: []Entry{
				{TrackID: "a", Embedding: []float32{1, 2}},
				{TrackID: "b", Embedding: []float32{3}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := New(tt.entries)
			if tt.wantErr {
				if !errors.Is(err, ErrDataIntegrity) {
					t.Errorf("New() error = %v, want ErrDataIntegrity", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if cat.Len() != len(tt.entries) {
				t.Errorf("Len() = %d, want %d", cat.Len(), len(tt.entries))
			}
		})
	}
}
