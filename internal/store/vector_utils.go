package store

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// encodeVectorJSON renders a vector as a compact JSON array, the text form
// accepted by sqlite-vec.
func encodeVectorJSON(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// decodeVector accepts the value forms SQLite may hand to a scalar function:
// JSON text (as string or bytes) or a little-endian float32 blob.
func decodeVector(v driver.Value) ([]float32, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return fastParseVectorJSON([]byte(x), nil)
	case []byte:
		trimmed := strings.TrimSpace(string(x))
		if strings.HasPrefix(trimmed, "[") {
			return fastParseVectorJSON(x, nil)
		}
		if len(x)%4 != 0 {
			return nil, fmt.Errorf("vector blob length %d not multiple of 4", len(x))
		}
		out := make([]float32, len(x)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(x[i*4:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported vector type %T", v)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// fastParseVectorJSON parses a JSON array of numbers into []float32,
// appending to dest after resetting it.
func fastParseVectorJSON(data []byte, dest []float32) ([]float32, error) {
	dest = dest[:0]

	i := 0
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i == len(data) {
		return dest, nil
	}
	if data[i] != '[' {
		return nil, errors.New("expected '[' at start")
	}
	i++

	for i < len(data) {
		for i < len(data) && isSpace(data[i]) {
			i++
		}
		if i == len(data) {
			break
		}
		if data[i] == ']' {
			return dest, nil
		}

		start := i
		for i < len(data) && data[i] != ',' && data[i] != ']' && !isSpace(data[i]) {
			i++
		}
		f, err := strconv.ParseFloat(string(data[start:i]), 32)
		if err != nil {
			return nil, err
		}
		dest = append(dest, float32(f))

		for i < len(data) && isSpace(data[i]) {
			i++
		}
		if i < len(data) && data[i] == ',' {
			i++
		}
	}
	return nil, errors.New("unterminated vector array")
}
