package exporter

import (
	"regexp"
	"strings"
	"time"

	"gridexport/pkg/contracts/domain"
)

// DefaultFilePrefix is the artifact name prefix
const DefaultFilePrefix = "grid-export"

// stored names may carry a "-N" suffix added by the artifact store on collision
var fileNameSuffix = regexp.MustCompile(`^-(\d{4}-\d{2}-\d{2})(?:-[1-9]\d*)?\.([a-z]+)$`)

// FileName builds "<prefix>-<YYYY-MM-DD>.<ext>" from the UTC date of t
func FileName(prefix string, format domain.Format, t time.Time) string {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	return prefix + "-" + t.UTC().Format(time.DateOnly) + "." + format.Extension()
}

// ParseFileName reports the format of name when it has the shape FileName
// produces for prefix, optionally followed by a "-N" collision suffix.
func ParseFileName(prefix, name string) (domain.Format, bool) {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return "", false
	}
	m := fileNameSuffix.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	if _, err := time.Parse(time.DateOnly, m[1]); err != nil {
		return "", false
	}
	for _, f := range domain.Formats {
		if f.Extension() == m[2] {
			return f, true
		}
	}
	return "", false
}
