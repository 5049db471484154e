//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register sqlite-vec with the mattn/go-sqlite3 driver so the vec0
	// module is present when the catalog probes for it at open.
	vec.Auto()
}
