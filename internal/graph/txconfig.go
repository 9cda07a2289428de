package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names used for timeouts and transaction metadata.
const (
	opSchema         = "schema"
	opEnsureUser     = "ensure_user"
	opUpsertItem     = "upsert_item"
	opAddFriend      = "add_friend"
	opRecordActivity = "record_activity"
	opRecommend      = "recommend_query"
	opStats          = "stats"
)

// TransactionConfig is the timeout and query.log metadata for one operation.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// Timeouts holds the read/write budgets applied to graph operations.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// DefaultTimeouts returns the budgets used when config leaves them unset.
func DefaultTimeouts() Timeouts {
	return Timeouts{Read: 10 * time.Second, Write: 30 * time.Second}
}

func (t Timeouts) forOperation(op string) TransactionConfig {
	kind, timeout := "write", t.Write
	switch op {
	case opRecommend, opStats:
		kind, timeout = "read", t.Read
	}
	return TransactionConfig{
		Timeout: timeout,
		Metadata: map[string]any{
			"app":       "gamegraph",
			"operation": op,
			"type":      kind,
		},
	}
}

// txOptions converts a TransactionConfig to session transaction options.
func (c TransactionConfig) txOptions() []func(*neo4j.TransactionConfig) {
	opts := []func(*neo4j.TransactionConfig){neo4j.WithTxMetadata(c.Metadata)}
	if c.Timeout > 0 {
		opts = append(opts, neo4j.WithTxTimeout(c.Timeout))
	}
	return opts
}
