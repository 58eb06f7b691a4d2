package units

import (
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultMegabytes is used whenever a capacity string can't be understood.
const DefaultMegabytes int64 = 512

var capacityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]{1,2})`)

// Capacity is the result of converting a capacity string.
// Defaulted is set if the input couldn't be parsed and MB holds DefaultMegabytes.
type Capacity struct {
	MB        int64
	Defaulted bool
}

// ConvertCapacity converts strings such as "2g", "512m" or "100k" to megabytes.
// The unit is matched case-insensitively: any unit containing g is gigabytes, m megabytes and k kilobytes.
// Fractions of a megabyte are truncated. Unparseable input never fails; it yields DefaultMegabytes instead.
func ConvertCapacity(text string) Capacity {
	match := capacityPattern.FindStringSubmatch(text)
	if match == nil {
		log.Errorf("can not convert capacity %q, returning default %dMB", text, DefaultMegabytes)
		return Capacity{MB: DefaultMegabytes, Defaulted: true}
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		log.Errorf("can not convert capacity %q, returning default %dMB: %s", text, DefaultMegabytes, err)
		return Capacity{MB: DefaultMegabytes, Defaulted: true}
	}
	unit := strings.ToLower(match[2])
	switch {
	case strings.Contains(unit, "g"):
		return Capacity{MB: int64(value * 1024)}
	case strings.Contains(unit, "m"):
		return Capacity{MB: int64(value)}
	case strings.Contains(unit, "k"):
		return Capacity{MB: int64(value / 1024)}
	default:
		log.Errorf("can not convert capacity %q with unit %q, returning default %dMB", text, unit, DefaultMegabytes)
		return Capacity{MB: DefaultMegabytes, Defaulted: true}
	}
}

// ToMegabytes is ConvertCapacity without the Defaulted flag.
func ToMegabytes(text string) int64 {
	return ConvertCapacity(text).MB
}

// Megabytes is a memory quantity decoded from a capacity string.
// See config.MegabytesDecodeHook.
type Megabytes int64
