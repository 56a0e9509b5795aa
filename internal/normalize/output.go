package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

// DefaultCoercible are the fields the pipeline documents as integer counts.
var DefaultCoercible = []string{"record_count", "count"}

var integerLiteral = regexp.MustCompile(`^[+-]?[0-9]+$`)

type OutputResult struct {
	Records  []artifact.Record
	Warnings []Warning
}

// Output normalizes records for comparison. Key casing is folded when the
// run's config sets normalize_keys; fields in coercible (DefaultCoercible
// when nil) are coerced to integers. The input is never modified and
// applying Output to its own result yields the same records.
func Output(records []artifact.Record, cfg artifact.Config, coercible []string) OutputResult {
	if coercible == nil {
		coercible = DefaultCoercible
	}
	foldKeys := cfg.Bool(artifact.VarNormalizeKeys)

	res := OutputResult{Records: make([]artifact.Record, len(records))}
	for i, r := range records {
		out := r.Clone()
		if out == nil {
			out = artifact.Record{}
		}
		if foldKeys {
			var ws []Warning
			out, ws = lowerKeys(i, out)
			res.Warnings = append(res.Warnings, ws...)
		}
		for _, field := range coercible {
			v, ok := out[field]
			if !ok {
				continue
			}
			coerced, err := coerceInt(i, field, v)
			if err != nil {
				res.Warnings = append(res.Warnings, Warning{
					Kind:    CoercionFailed,
					Index:   i,
					Field:   field,
					Raw:     v.String(),
					Message: err.Error(),
					Err:     err,
				})
				continue
			}
			out[field] = coerced
		}
		res.Records[i] = out
	}
	return res
}

func coerceInt(index int, field string, v artifact.Value) (artifact.Value, error) {
	switch v.Kind() {
	case artifact.KindInteger, artifact.KindNull:
		return v, nil
	case artifact.KindString:
		s := strings.TrimSpace(v.AsString())
		if integerLiteral.MatchString(s) {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return artifact.Int(n), nil
			}
		}
	}
	return v, &CoercionError{Record: index, Field: field, Raw: v}
}

// lowerKeys folds keys to lower case. When several keys fold to the same
// name the lexicographically smallest original key wins.
func lowerKeys(index int, r artifact.Record) (artifact.Record, []Warning) {
	groups := make(map[string][]string, len(r))
	for k := range r {
		lk := strings.ToLower(k)
		groups[lk] = append(groups[lk], k)
	}

	out := make(artifact.Record, len(groups))
	var warnings []Warning
	for lk, originals := range groups {
		sort.Strings(originals)
		out[lk] = r[originals[0]]
		if len(originals) > 1 {
			warnings = append(warnings, Warning{
				Kind:    KeyCollision,
				Index:   index,
				Field:   lk,
				Message: fmt.Sprintf("keys %s fold to %q; kept %q", strings.Join(quoteAll(originals), ", "), lk, originals[0]),
			})
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Field < warnings[j].Field })
	return out, warnings
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}
