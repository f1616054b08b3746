//go:build !(sqlite_vec && cgo)

package store

import (
	"database/sql/driver"
	"fmt"

	sqlite "modernc.org/sqlite"

	"hive/internal/embedding"
)

// Pure-Go build: modernc.org/sqlite with a Go implementation of the
// sqlite-vec distance function so the query SQL is identical in both builds.
const (
	driverName = "sqlite"
	nativeVec  = false
)

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("vec_distance_cosine", 2, vecDistanceCosine); err != nil {
		panic(fmt.Sprintf("store: register vec_distance_cosine: %v", err))
	}
}

// vecDistanceCosine returns 1 - cosine similarity. Zero vectors have
// distance 1, matching sqlite-vec.
func vecDistanceCosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_distance_cosine expects 2 arguments")
	}
	a, err := decodeVector(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeVector(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) == 0 || len(b) == 0 {
		return float64(1), nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("vec_distance_cosine: dimension mismatch %d vs %d", len(a), len(b))
	}
	sim, err := embedding.CosineSimilarity(a, b)
	if err != nil {
		return nil, err
	}
	return 1 - sim, nil
}
