// internal/rules/fieldpath.go
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Field path parsing and resolution.
 *
 * A rule's field name doubles as a path into the evaluated payload:
 *   "age"                 -> {age}
 *   "user.address.city"   -> {user}{address}{city}
 *   "items[0].price"      -> {items}{0}{price}
 *   "items[*].price"      -> {items}{*}{price}
 *   "tags.*"              -> {tags}{*}
 *
 * Wildcards use ANY semantics: the first element (array order, or sorted key
 * order for objects) for which the rest of the path resolves wins. Depth is
 * capped at MaxPathDepth and wildcards at MaxNestedWildcards, both at parse
 * and at resolution time.
 */

// ParsePath splits a field name into path segments.
func ParsePath(name string) ([]types.PathSegment, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty field name", types.ErrInvalidPath)
	}

	var path []types.PathSegment
	for _, part := range strings.Split(name, ".") {
		segs, err := parsePart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", types.ErrInvalidPath, name, err)
		}
		path = append(path, segs...)
	}

	if err := checkLimits(path); err != nil {
		return nil, err
	}
	return path, nil
}

// parsePart parses "key", "*", "key[0]", "key[*][1]" or "[0]".
func parsePart(part string) ([]types.PathSegment, error) {
	key := part
	rest := ""
	if i := strings.IndexByte(part, '['); i >= 0 {
		key, rest = part[:i], part[i:]
	}

	var segs []types.PathSegment
	switch key {
	case "":
		if rest == "" {
			return nil, fmt.Errorf("empty segment")
		}
	case "*":
		segs = append(segs, types.PathSegment{Wildcard: true})
	default:
		segs = append(segs, types.PathSegment{Key: key})
	}

	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return nil, fmt.Errorf("unbalanced brackets")
		}
		inner := rest[1:end]
		rest = rest[end+1:]

		if inner == "*" {
			segs = append(segs, types.PathSegment{Wildcard: true})
			continue
		}
		idx, err := strconv.Atoi(inner)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("bad index %q", inner)
		}
		segs = append(segs, types.PathSegment{Index: idx, IsIndex: true})
	}
	return segs, nil
}

// FormatPath renders segments back into field-name form.
func FormatPath(path []types.PathSegment) string {
	var b strings.Builder
	for i, seg := range path {
		switch {
		case seg.Wildcard:
			b.WriteString("[*]")
		case seg.IsIndex:
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

func checkLimits(path []types.PathSegment) error {
	if len(path) > types.MaxPathDepth {
		return types.ErrPathTooDeep
	}
	wildcardCount := 0
	for _, seg := range path {
		if seg.Wildcard {
			wildcardCount++
		}
	}
	if wildcardCount > types.MaxNestedWildcards {
		return types.ErrTooManyWildcards
	}
	return nil
}

// ResolveResult contains the resolved value and the actual path taken.
type ResolveResult struct {
	Value        any                 // resolved value (nil if not found)
	ResolvedPath []types.PathSegment // path with wildcards replaced by actual indices
	Found        bool                // true if path resolved to a value
}

// Resolve traverses a JSON document following path segments.
// Returns ErrPathTooDeep, ErrTooManyWildcards or ErrFieldNotFound.
func Resolve(path []types.PathSegment, data json.RawMessage) (ResolveResult, error) {
	if err := checkLimits(path); err != nil {
		return ResolveResult{}, err
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ResolveResult{}, err
	}

	return resolveRecursive(path, parsed, nil)
}

// ResolveValue traverses an already decoded document (maps, slices, scalars
// as produced by encoding/json).
func ResolveValue(path []types.PathSegment, data any) (ResolveResult, error) {
	if err := checkLimits(path); err != nil {
		return ResolveResult{}, err
	}
	return resolveRecursive(path, data, nil)
}

// resolveRecursive returns the first match for wildcards and accumulates the
// resolved path with concrete indices/keys in place of wildcards.
func resolveRecursive(path []types.PathSegment, current any, resolvedSoFar []types.PathSegment) (ResolveResult, error) {
	if len(path) == 0 {
		return ResolveResult{
			Value:        current,
			ResolvedPath: resolvedSoFar,
			Found:        true,
		}, nil
	}

	seg := path[0]
	remaining := path[1:]

	switch v := current.(type) {
	case map[string]any:
		if seg.Wildcard {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				resolved := appendSegment(resolvedSoFar, types.PathSegment{Key: key})
				result, err := resolveRecursive(remaining, v[key], resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if seg.IsIndex {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		val, ok := v[seg.Key]
		if !ok {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, val, appendSegment(resolvedSoFar, seg))

	case []any:
		if seg.Wildcard {
			for i, elem := range v {
				resolved := appendSegment(resolvedSoFar, types.PathSegment{Index: i, IsIndex: true})
				result, err := resolveRecursive(remaining, elem, resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index], appendSegment(resolvedSoFar, seg))

	default:
		// null or scalar with path remaining
		return ResolveResult{}, types.ErrFieldNotFound
	}
}

// appendSegment copies before appending so sibling wildcard branches never
// share a backing array.
func appendSegment(path []types.PathSegment, seg types.PathSegment) []types.PathSegment {
	out := make([]types.PathSegment, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}
