package embedding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hack-pad/hackpadfs"
)

// ErrMalformedModel is returned when an embedding file cannot be parsed.
var ErrMalformedModel = errors.New("malformed word2vec model")

// LoadWord2Vec loads a word2vec model from fsys. ".txt" and ".vec" files are
// read as the text format, ".bin" as the binary format; for anything else the
// format is sniffed from the first bytes of the file.
func LoadWord2Vec(fsys hackpadfs.FS, name string, filePath string) (*KeyedVectors, error) {
	return loadFile(fsys, filePath, func(r *bufio.Reader) (*KeyedVectors, error) {
		isBinary := false
		switch strings.ToLower(path.Ext(filePath)) {
		case ".txt", ".vec":
		case ".bin":
			isBinary = true
		default:
			isBinary = looksBinary(r)
		}
		if isBinary {
			return ReadWord2VecBinary(r, name)
		}
		return ReadWord2VecText(r, name)
	})
}

// looksBinary peeks at the buffered head of the file. Raw float32 data
// contains NUL bytes or invalid UTF-8 almost immediately.
func looksBinary(r *bufio.Reader) bool {
	head, _ := r.Peek(4096)
	for i := 0; i < len(head); {
		if head[i] == 0 {
			return true
		}
		c, size := utf8.DecodeRune(head[i:])
		if c == utf8.RuneError && size <= 1 {
			// a rune cut off by the peek window is not evidence
			return len(head)-i >= utf8.UTFMax
		}
		i += size
	}
	return false
}

func loadFile(
	fsys hackpadfs.FS,
	filePath string,
	read func(*bufio.Reader) (*KeyedVectors, error),
) (*KeyedVectors, error) {
	f, err := fsys.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return read(bufio.NewReaderSize(f, 1<<20))
}

// ReadWord2VecText parses the word2vec text format. The "count dim" header
// line is optional; without it the dimension is taken from the first row.
func ReadWord2VecText(r io.Reader, name string) (*KeyedVectors, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var kv *KeyedVectors
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		if kv == nil && line == 1 && len(fields) == 2 {
			dim, err := strconv.Atoi(fields[1])
			if _, cerr := strconv.Atoi(fields[0]); err == nil && cerr == nil {
				if dim <= 0 {
					return nil, fmt.Errorf("%w: invalid dimension %d", ErrMalformedModel, dim)
				}
				kv = NewKeyedVectors(name, dim)
				continue
			}
		}

		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d has no vector", ErrMalformedModel, line)
		}
		if kv == nil {
			kv = NewKeyedVectors(name, len(fields)-1)
		}
		if len(fields)-1 != kv.Dim() {
			return nil, fmt.Errorf("%w: line %d has %d values, expected %d",
				ErrMalformedModel, line, len(fields)-1, kv.Dim())
		}

		vec := make([]float32, kv.Dim())
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedModel, line, err)
			}
			vec[i] = float32(v)
		}
		if err := kv.Add(fields[0], vec); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if kv == nil || kv.Len() == 0 {
		return nil, fmt.Errorf("%w: no vectors", ErrMalformedModel)
	}
	return kv, nil
}

// ReadWord2VecBinary parses the word2vec binary format: a "count dim" header
// line followed by count records of "word " and dim little-endian float32s.
func ReadWord2VecBinary(r *bufio.Reader, name string) (*KeyedVectors, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedModel, err)
	}
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: header %q", ErrMalformedModel, strings.TrimSpace(header))
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return nil, fmt.Errorf("%w: header count %q", ErrMalformedModel, fields[0])
	}
	dim, err := strconv.Atoi(fields[1])
	if err != nil || dim <= 0 {
		return nil, fmt.Errorf("%w: header dimension %q", ErrMalformedModel, fields[1])
	}

	kv := NewKeyedVectors(name, dim)
	raw := make([]byte, 4*dim)
	for i := 0; i < count; i++ {
		word, err := readBinaryWord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedModel, i, err)
		}
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("%w: record %d vector: %v", ErrMalformedModel, i, err)
		}

		vec := make([]float32, dim)
		for j := range vec {
			bits := binary.LittleEndian.Uint32(raw[4*j:])
			vec[j] = math.Float32frombits(bits)
			if math.IsNaN(float64(vec[j])) || math.IsInf(float64(vec[j]), 0) {
				return nil, fmt.Errorf("%w: record %d has non-finite value", ErrMalformedModel, i)
			}
		}
		if err := kv.Add(word, vec); err != nil {
			return nil, err
		}
	}
	return kv, nil
}

func readBinaryWord(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if c == ' ' {
			if b.Len() == 0 {
				continue
			}
			return b.String(), nil
		}
		if c == '\n' || c == '\r' {
			if b.Len() == 0 {
				continue
			}
			return "", fmt.Errorf("unexpected newline after %q", b.String())
		}
		if b.Len() > 1024 {
			return "", errors.New("word too long")
		}
		b.WriteByte(c)
	}
}
