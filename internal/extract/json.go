// Package extract recovers structured data from free-form model output.
package extract

import (
	"regexp"
	"strings"

	"github.com/menutalk/kiku/internal/errors"
)

// Container is the JSON value kind the caller expects.
type Container int

const (
	Array Container = iota
	Object
)

func (c Container) delims() (byte, byte) {
	if c == Object {
		return '{', '}'
	}
	return '[', ']'
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?i:json)\\s*(.*?)\\s*```")
	// openFence matches output that was cut off before the closing fence.
	openFence = regexp.MustCompile("(?s)```(?i:json)\\s*(.*)$")
)

// Strategy names which rule located the JSON fragment.
type Strategy string

const (
	StrategyFence   Strategy = "fence"
	StrategyBare    Strategy = "bare"
	StrategyBracket Strategy = "bracket"
)

// JSON locates the JSON fragment inside raw model text. Rules are tried in
// order: a ```json fence, the whole trimmed text when it already opens with
// the container's bracket, then the span from the first opening bracket to
// the last closing one. When nothing matches it returns a PARSE_ERROR that
// carries raw.
func JSON(raw string, c Container) (string, Strategy, error) {
	opening, closing := c.delims()

	if m := fencedJSON.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1]), StrategyFence, nil
	}
	if m := openFence.FindStringSubmatch(raw); m != nil && strings.HasPrefix(strings.TrimSpace(m[1]), string(opening)) {
		return strings.TrimSpace(m[1]), StrategyFence, nil
	}

	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == opening {
		return trimmed, StrategyBare, nil
	}

	first := strings.IndexByte(raw, opening)
	last := strings.LastIndexByte(raw, closing)
	if first != -1 && last > first {
		return raw[first : last+1], StrategyBracket, nil
	}

	return "", "", errors.NewParseError("model output contained no JSON", "NO_JSON_FOUND", raw, nil)
}
