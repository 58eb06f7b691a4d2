package domain

import (
	"sort"

	"golang.org/x/exp/maps"
)

// Metric names reported per worker in a ResourceSnapshot.
const (
	FreeSlotsKey  = "freeSlots"
	MemoryFreeKey = "memoryfree"
	CoresFreeKey  = "coresfree"
)

// WorkerResources maps worker id to metric name to value.
type WorkerResources map[string]map[string]float64

// ResourceSnapshot is a point-in-time view of free resources, keyed by engine type.
// It is produced outside the dispatcher and is never modified by it.
type ResourceSnapshot map[string]WorkerResources

// FindFamily returns the entry of the first key belonging to the given family.
// Keys are visited in sorted order so the result doesn't depend on map iteration order.
func (s ResourceSnapshot) FindFamily(family EngineFamily) (string, WorkerResources, bool) {
	keys := maps.Keys(s)
	sort.Strings(keys)
	for _, key := range keys {
		if FamilyOf(key) == family {
			return key, s[key], true
		}
	}
	return "", nil, false
}

// Sum adds up a metric across all workers. Workers not reporting the metric contribute nothing.
// Each worker's value is truncated to an integer before summing.
func (w WorkerResources) Sum(metric string) int64 {
	var total int64
	for _, metrics := range w {
		total += int64(metrics[metric])
	}
	return total
}
