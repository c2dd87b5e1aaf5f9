// Package request parses the query surface of the HTTP API: the result
// count and the lobby filter expression. It is not responsible for running
// queries; parsing only fails soft, degrading to defaults.
package request

import (
	"strconv"
	"strings"

	"github.com/pokt-network/poktroll/pkg/polylog"
)

const (
	// DefaultCount is the result limit applied when the request carries no
	// usable count parameter.
	DefaultCount = 200

	// MinCount and MaxCount clamp the caller-supplied result limit.
	MinCount = 1
	MaxCount = 5000

	filterExprPrefix = "filters{"
	filterExprSuffix = "}"
)

// ParseCount parses the count query parameter, clamping it to
// [MinCount, MaxCount]. Absent or unparseable values yield DefaultCount.
func ParseCount(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultCount
	}
	if n < MinCount {
		return MinCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// FilterParser parses lobby filter expressions of the form
//
//	filters{["mode"="coop","region"="eu"], ranked, ["mode"="pvp"]}
//
// Each bracketed group is one literal filter set of key=value equality
// matches. A bare token names a predefined filter group from configuration
// and expands to that group's sets. Unknown tokens are logged and skipped;
// they never fail the request.
type FilterParser struct {
	Logger polylog.Logger

	// Predefined maps a group name to the filter sets it expands to.
	Predefined map[string][]map[string]string
}

// Parse extracts the filter sets from a raw filter expression. An
// expression that is empty, unwrapped or yields nothing returns an empty
// slice; the caller decides what an unfiltered query means.
func (p *FilterParser) Parse(raw string) []map[string]string {
	if !strings.HasPrefix(raw, filterExprPrefix) || !strings.HasSuffix(raw, filterExprSuffix) {
		if raw != "" {
			p.Logger.Warn().Str("filters", raw).Msg("ignoring malformed filter expression")
		}
		return nil
	}
	content := raw[len(filterExprPrefix) : len(raw)-len(filterExprSuffix)]

	var sets []map[string]string
	idx := 0
	for idx < len(content) {
		openBracket := indexFrom(content, idx, '[')
		comma := indexFrom(content, idx, ',')

		if openBracket != -1 && (comma == -1 || openBracket < comma) {
			closeBracket := indexFrom(content, openBracket, ']')
			if closeBracket == -1 {
				break
			}
			sets = append(sets, parseGroup(content[openBracket+1:closeBracket]))
			idx = closeBracket + 1
		} else {
			endOfToken := comma
			if endOfToken == -1 {
				endOfToken = len(content)
			}
			token := strings.TrimSpace(content[idx:endOfToken])
			if token != "" {
				if expansion, ok := p.Predefined[token]; ok {
					sets = append(sets, expansion...)
				} else {
					p.Logger.Error().Str("filter", token).Msg("filter group not found in configuration")
				}
			}
			idx = endOfToken
		}

		if idx < len(content) && content[idx] == ',' {
			idx++
		}
		for idx < len(content) && isSpace(content[idx]) {
			idx++
		}
	}

	return sets
}

// parseGroup parses one bracketed group body into an equality filter set.
// Malformed pairs are dropped.
func parseGroup(rawGroup string) map[string]string {
	set := make(map[string]string)
	for _, pair := range strings.Split(rawGroup, ",") {
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			continue
		}
		key := strings.Trim(strings.TrimSpace(parts[0]), `"`)
		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)
		set[key] = value
	}
	return set
}

func indexFrom(s string, from int, c byte) int {
	i := strings.IndexByte(s[from:], c)
	if i == -1 {
		return -1
	}
	return from + i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
