package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Subsequent calls are no-ops.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new time-ordered int64 ID. Used for webhook delivery IDs and,
// when unique keys are enabled, object storage key prefixes.
func New() int64 {
	return node.Generate().Int64()
}

// NewString is New formatted in base 10.
func NewString() string {
	return node.Generate().String()
}
