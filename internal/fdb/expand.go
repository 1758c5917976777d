package fdb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// valueTerm is one entry of an axis' value list: a literal value or an
// inclusive range written "from/to/end" or "from/to/end/by/step". Ranges
// are never materialised; values are computed by position.
type valueTerm struct {
	lit string

	isRange bool
	from    int64
	by      int64
	n       int64
	// width zero-pads integer values ("0001/to/0003").
	width int
	// date ranges count in days over YYYYMMDD values.
	date bool
}

const dateLayout = "20060102"

const secondsPerDay = 24 * 60 * 60

func (t valueTerm) len() int64 {
	if !t.isRange {
		return 1
	}
	return t.n
}

func (t valueTerm) at(i int64) string {
	if !t.isRange {
		return t.lit
	}
	v := t.from + i*t.by
	if t.date {
		return time.Unix(v*secondsPerDay, 0).UTC().Format(dateLayout)
	}
	if t.width > 0 && v >= 0 {
		return fmt.Sprintf("%0*d", t.width, v)
	}
	return strconv.FormatInt(v, 10)
}

func isKeyword(tok, word string) bool {
	return strings.EqualFold(strings.TrimSpace(tok), word)
}

// parseTerms splits the tokens of one axis into literals and ranges. The
// returned tokens are the input with repeated literals removed, as written.
func parseTerms(axis string, tokens []string) ([]valueTerm, []string, error) {
	var terms []valueTerm
	var kept []string
	seen := make(map[string]struct{}, len(tokens))

	for i := 0; i < len(tokens); i++ {
		if i+2 < len(tokens) && isKeyword(tokens[i+1], "to") {
			end := i + 3
			step := "1"
			if end+1 < len(tokens) && isKeyword(tokens[end], "by") {
				step = tokens[end+1]
				end += 2
			}
			t, err := parseRange(axis, tokens[i], tokens[i+2], step)
			if err != nil {
				return nil, nil, err
			}
			terms = append(terms, t)
			kept = append(kept, tokens[i:end]...)
			i = end - 1
			continue
		}

		v := tokens[i]
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		terms = append(terms, valueTerm{lit: v})
		kept = append(kept, v)
	}
	return terms, kept, nil
}

func parseRange(axis, from, to, by string) (valueTerm, error) {
	step, err := strconv.ParseInt(strings.TrimSpace(by), 10, 64)
	if err != nil || step == 0 {
		return valueTerm{}, errorf(InvalidArgument, "request add", "axis %q: invalid range step %q", axis, by)
	}

	t := valueTerm{isRange: true, by: step}
	var end int64
	if axis == "date" {
		start, err1 := time.Parse(dateLayout, from)
		stop, err2 := time.Parse(dateLayout, to)
		if err1 == nil && err2 == nil {
			t.date = true
			t.from = start.Unix() / secondsPerDay
			end = stop.Unix() / secondsPerDay
		}
	}
	if !t.date {
		a, err1 := strconv.ParseInt(from, 10, 64)
		b, err2 := strconv.ParseInt(to, 10, 64)
		if err1 != nil || err2 != nil {
			return valueTerm{}, errorf(InvalidArgument, "request add", "axis %q: range %s/to/%s needs integer bounds", axis, from, to)
		}
		t.from, end = a, b
		if padded(from) || padded(to) {
			t.width = max(len(from), len(to))
		}
	}

	span := end - t.from
	if span != 0 && (span > 0) != (step > 0) {
		return valueTerm{}, errorf(InvalidArgument, "request add", "axis %q: range %s/to/%s/by/%d is empty", axis, from, to, step)
	}
	t.n = span/step + 1
	return t, nil
}

func padded(s string) bool {
	return len(s) > 1 && s[0] == '0'
}

// termsLen returns the number of values in terms, saturating at MaxInt64.
func termsLen(terms []valueTerm) int64 {
	var n int64
	for _, t := range terms {
		if n > math.MaxInt64-t.len() {
			return math.MaxInt64
		}
		n += t.len()
	}
	return n
}

// termAt returns the i-th value of terms.
func termAt(terms []valueTerm, i int64) string {
	for _, t := range terms {
		if i < t.len() {
			return t.at(i)
		}
		i -= t.len()
	}
	return ""
}
