// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when the binary serves expvar.Handler.
package metrics

import "expvar"

// Operation counters.
var (
	FriendsAdded        = expvar.NewInt("gamegraph_friends_added_total")
	PlaysRecorded       = expvar.NewInt("gamegraph_plays_recorded_total")
	UsersMirrored       = expvar.NewInt("gamegraph_users_mirrored_total")
	MirrorDeferred      = expvar.NewInt("gamegraph_mirror_deferred_total")
	MirrorReconciled    = expvar.NewInt("gamegraph_mirror_reconciled_total")
	RecommendationsMade = expvar.NewInt("gamegraph_recommendations_total")
	GraphUnavailable    = expvar.NewInt("gamegraph_graph_unavailable_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
