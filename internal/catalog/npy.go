package catalog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// npyMagic is the NumPy .npy file signature.
var npyMagic = []byte("\x93NUMPY")

var shapeRe = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
var descrRe = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
var fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)

// loadMatrix reads a 2-D little-endian float matrix from a NumPy .npy file.
// Supported dtypes: <f2, <f4, <f8. All values are converted to float32.
func loadMatrix(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	rows, cols, itemSize, err := readNPYHeader(r)
	if err != nil {
		return nil, 0, err
	}

	raw := make([]byte, rows*cols*itemSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, 0, fmt.Errorf("%w: embedding matrix truncated: %v", ErrDataIntegrity, err)
	}

	matrix := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		base := i * cols * itemSize
		for j := 0; j < cols; j++ {
			off := base + j*itemSize
			switch itemSize {
			case 2:
				row[j] = float16to32(binary.LittleEndian.Uint16(raw[off:]))
			case 4:
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
			case 8:
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[off:])))
			}
		}
		matrix[i] = row
	}

	return matrix, cols, nil
}

// readNPYHeader parses the .npy preamble and dict header, returning the
// matrix shape and the element size in bytes.
func readNPYHeader(r *bufio.Reader) (rows, cols, itemSize int, err error) {
	preamble := make([]byte, 8)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: read npy preamble: %v", ErrDataIntegrity, err)
	}
	if string(preamble[:6]) != string(npyMagic) {
		return 0, 0, 0, fmt.Errorf("%w: not a npy file", ErrDataIntegrity)
	}
	major := preamble[6]

	var headerLen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return 0, 0, 0, fmt.Errorf("%w: read npy header length: %v", ErrDataIntegrity, err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return 0, 0, 0, fmt.Errorf("%w: read npy header length: %v", ErrDataIntegrity, err)
		}
		headerLen = int(n)
	default:
		return 0, 0, 0, fmt.Errorf("%w: unsupported npy version %d", ErrDataIntegrity, major)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: read npy header: %v", ErrDataIntegrity, err)
	}
	header := string(headerBytes)

	m := descrRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: npy header missing descr", ErrDataIntegrity)
	}
	switch m[1] {
	case "<f2":
		itemSize = 2
	case "<f4":
		itemSize = 4
	case "<f8":
		itemSize = 8
	default:
		return 0, 0, 0, fmt.Errorf("%w: unsupported npy dtype %q", ErrDataIntegrity, m[1])
	}

	if m := fortranRe.FindStringSubmatch(header); m == nil || m[1] != "False" {
		return 0, 0, 0, fmt.Errorf("%w: fortran-order npy not supported", ErrDataIntegrity)
	}

	m = shapeRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: npy header missing shape", ErrDataIntegrity)
	}
	dims := strings.Split(m[1], ",")
	var shape []int
	for _, d := range dims {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: bad npy shape %q", ErrDataIntegrity, m[1])
		}
		shape = append(shape, n)
	}
	if len(shape) != 2 {
		return 0, 0, 0, fmt.Errorf("%w: expected 2-D embedding matrix, got %d-D", ErrDataIntegrity, len(shape))
	}

	return shape[0], shape[1], itemSize, nil
}

// float16to32 widens an IEEE 754 half-precision value. The reference
// artifact stores embeddings as float16 to halve its size on disk.
func float16to32(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	var bits uint32
	switch {
	case exp == 0 && frac == 0:
		bits = sign << 31
	case exp == 0:
		// Subnormal: normalize.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		bits = sign<<31 | e<<23 | frac<<13
	case exp == 0x1f:
		// Inf / NaN.
		bits = sign<<31 | 0xff<<23 | frac<<13
	default:
		bits = sign<<31 | (exp+127-15)<<23 | frac<<13
	}
	return math.Float32frombits(bits)
}
