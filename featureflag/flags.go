package featureflag

type Flag string

const (
	// Validates the world index after every mutation and panics on the first
	// violation.
	FlagQuadtreeInvariantChecks Flag = "QUADTREE_INVARIANT_CHECKS"

	FlagDisableWanderModule  Flag = "DISABLE_WANDER_MODULE"
	FlagDisableSpawnerModule Flag = "DISABLE_SPAWNER_MODULE"

	// Stops pushing frames to /watch clients. Viewport messages are still
	// accepted.
	FlagDisableWatchBroadcast Flag = "DISABLE_WATCH_BROADCAST"
)

var knownFlags = []Flag{
	FlagQuadtreeInvariantChecks,
	FlagDisableWanderModule,
	FlagDisableSpawnerModule,
	FlagDisableWatchBroadcast,
}
