//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// cgo build: mattn/go-sqlite3 with the sqlite-vec extension auto-loaded,
// which provides vec_distance_cosine natively.
const (
	driverName = "sqlite3"
	nativeVec  = true
)

func init() {
	vec.Auto()
}
