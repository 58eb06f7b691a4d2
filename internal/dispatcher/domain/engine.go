package domain

import "strings"

// EngineFamily groups engine types sharing a resource model.
type EngineFamily int

const (
	FamilyUnknown EngineFamily = iota
	// FamilyFlink engines schedule onto fixed slots per worker.
	FamilyFlink
	// FamilySpark engines schedule a driver plus executors by memory and cores.
	FamilySpark
)

var familyPrefixes = []struct {
	prefix string
	family EngineFamily
}{
	{"flink", FamilyFlink},
	{"spark", FamilySpark},
}

// FamilyOf maps an engine type (or a snapshot key) to its family.
// Matching is case-insensitive and prefix based, so "Flink180" and "flink" are the same family.
func FamilyOf(engineType string) EngineFamily {
	name := strings.ToLower(strings.TrimSpace(engineType))
	for _, p := range familyPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.family
		}
	}
	return FamilyUnknown
}

func (f EngineFamily) String() string {
	switch f {
	case FamilyFlink:
		return "flink"
	case FamilySpark:
		return "spark"
	default:
		return "unknown"
	}
}

func IsFlink(engineType string) bool {
	return FamilyOf(engineType) == FamilyFlink
}

func IsSpark(engineType string) bool {
	return FamilyOf(engineType) == FamilySpark
}
