package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// MemoryMB renders a size given in megabytes as KB, MB or GB.
func MemoryMB(mb float64) string {
	switch {
	case mb < 1:
		return fmt.Sprintf("%.2f KB", mb*1024)
	case mb > 1024:
		return fmt.Sprintf("%.2f GB", mb/1024)
	default:
		return fmt.Sprintf("%.2f MB", mb)
	}
}

// MemoryGB renders a size given in gigabytes as MB or GB.
func MemoryGB(gb float64) string {
	if gb < 1 {
		return fmt.Sprintf("%.2f MB", gb*1024)
	}
	return fmt.Sprintf("%.2f GB", gb)
}

// DiskGB renders a disk size given in gigabytes.
func DiskGB(gb float64) string {
	return MemoryGB(gb)
}

// NetworkSpeed renders kilobits per second as kbps, Mbps or Gbps.
func NetworkSpeed(kbps float64) string {
	switch {
	case kbps < 1000:
		return fmt.Sprintf("%.2f kbps", kbps)
	case kbps < 1000000:
		return fmt.Sprintf("%.2f Mbps", kbps/1000)
	default:
		return fmt.Sprintf("%.2f Gbps", kbps/1000000)
	}
}

// Timestamp renders t like "2nd January 2024 - 3:04:05 pm".
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s - %s", humanize.Ordinal(t.Day()), t.Format("January 2006"), t.Format("3:04:05 pm"))
}

// Age renders how long ago t was, for example "3 minutes ago".
func Age(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return humanize.Time(t)
}

// Bytes renders a byte count, for example "512 MB".
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// CamelCaseToLabel turns "deployPending" into "Deploy Pending".
func CamelCaseToLabel(s string) string {
	words := strings.Split(camelBoundary.ReplaceAllString(s, "$1 $2"), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
