package id

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	once    sync.Once
	initErr error
)

// Init initializes the Snowflake node for this process.
// The server, the worker and the CLI must run with distinct node ids.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New generates a time-ordered int64 id. Init must be called first.
func New() int64 {
	return node.Generate().Int64()
}

// Parse parses an id received as a decimal string (path params, CLI args).
func Parse(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return v, nil
}

// Time returns the creation time encoded in a Snowflake id.
func Time(v int64) time.Time {
	return time.UnixMilli(snowflake.ID(v).Time())
}
