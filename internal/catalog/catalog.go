// Package catalog loads the track catalog and its precomputed embeddings.
//
// The catalog is assembled from two row-aligned artifacts: a CSV file with
// track metadata and a NumPy .npy matrix with one embedding per row. It is
// immutable after load and safe for concurrent readers.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrDataIntegrity indicates that the metadata and embedding artifacts do
// not line up (row count, dimensionality) or are malformed.
var ErrDataIntegrity = errors.New("catalog data integrity error")

// Entry is a single catalog row.
type Entry struct {
	TrackID   string
	Caption   string
	Embedding []float32
}

// Catalog is the immutable in-memory track catalog.
type Catalog struct {
	entries   []Entry
	dimension int
}

// New builds a catalog from pre-assembled entries. All entries must share
// one non-zero embedding dimension.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrDataIntegrity)
	}

	dim := len(entries[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("%w: embeddings have zero dimension", ErrDataIntegrity)
	}
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("%w: entry %d has dimension %d, want %d",
				ErrDataIntegrity, i, len(e.Embedding), dim)
		}
	}

	return &Catalog{entries: entries, dimension: dim}, nil
}

// Load reads track metadata from metaPath (CSV with "ytid" and "caption"
// columns) and embeddings from vectorsPath (.npy matrix), aligned by row.
func Load(metaPath, vectorsPath string) (*Catalog, error) {
	ids, captions, err := loadMeta(metaPath)
	if err != nil {
		return nil, err
	}

	vectors, _, err := loadMatrix(vectorsPath)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(ids) {
		return nil, fmt.Errorf("%w: %d metadata rows but %d embeddings",
			ErrDataIntegrity, len(ids), len(vectors))
	}

	entries := make([]Entry, len(ids))
	for i := range ids {
		entries[i] = Entry{
			TrackID:   ids[i],
			Caption:   captions[i],
			Embedding: vectors[i],
		}
	}

	return New(entries)
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Dimension returns the embedding dimensionality shared by all entries.
func (c *Catalog) Dimension() int {
	return c.dimension
}

// Entry returns the catalog entry at index i.
func (c *Catalog) Entry(i int) Entry {
	return c.entries[i]
}

func loadMeta(path string) (ids, captions []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog metadata: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read CSV header: %v", ErrDataIntegrity, err)
	}

	idCol, captionCol := -1, -1
	for i, name := range header {
		switch name {
		case "ytid":
			idCol = i
		case "caption":
			captionCol = i
		}
	}
	if idCol < 0 || captionCol < 0 {
		return nil, nil, fmt.Errorf("%w: CSV missing ytid/caption columns", ErrDataIntegrity)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read CSV row %d: %v", ErrDataIntegrity, len(ids)+2, err)
		}
		if idCol >= len(record) || captionCol >= len(record) {
			return nil, nil, fmt.Errorf("%w: CSV row %d has %d fields", ErrDataIntegrity, len(ids)+2, len(record))
		}
		ids = append(ids, record[idCol])
		captions = append(captions, record[captionCol])
	}

	return ids, captions, nil
}
