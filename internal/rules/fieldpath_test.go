package rules

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/querybuilder/internal/types"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		want    []types.PathSegment
		wantErr error
	}{
		{"simple key", "age", []types.PathSegment{{Key: "age"}}, nil},
		{"dotted", "user.address.city", []types.PathSegment{{Key: "user"}, {Key: "address"}, {Key: "city"}}, nil},
		{"index", "items[2].price", []types.PathSegment{{Key: "items"}, {Index: 2, IsIndex: true}, {Key: "price"}}, nil},
		{"wildcard brackets", "items[*].price", []types.PathSegment{{Key: "items"}, {Wildcard: true}, {Key: "price"}}, nil},
		{"wildcard segment", "tags.*", []types.PathSegment{{Key: "tags"}, {Wildcard: true}}, nil},
		{"chained brackets", "m[0][1]", []types.PathSegment{{Key: "m"}, {Index: 0, IsIndex: true}, {Index: 1, IsIndex: true}}, nil},
		{"empty", "", nil, types.ErrInvalidPath},
		{"empty segment", "a..b", nil, types.ErrInvalidPath},
		{"unbalanced", "a[0", nil, types.ErrInvalidPath},
		{"bad index", "a[x]", nil, types.ErrInvalidPath},
		{"negative index", "a[-1]", nil, types.ErrInvalidPath},
		{"too many wildcards", "a[*].b[*].c[*]", nil, types.ErrTooManyWildcards},
		{"too deep", strings.Repeat("a.", types.MaxPathDepth) + "a", nil, types.ErrPathTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.field)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePath(%q) error = %v, wantErr %v", tt.field, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) error = %v, want nil", tt.field, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePath(%q) = %+v, want %+v", tt.field, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParsePath(%q)[%d] = %+v, want %+v", tt.field, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatPath(t *testing.T) {
	for _, field := range []string{"age", "user.name", "items[0].price", "items[*].tags[1]"} {
		path, err := ParsePath(field)
		if err != nil {
			t.Fatalf("ParsePath(%q) error = %v", field, err)
		}
		if got := FormatPath(path); got != field {
			t.Errorf("FormatPath(ParsePath(%q)) = %q", field, got)
		}
	}
}

func TestResolve_Normal(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		data     string
		expected any
	}{
		{"nested object traversal", "user.name", `{"user": {"name": "Alice"}}`, "Alice"},
		{"array index access", "users[0].name", `{"users": [{"name": "Bob"}]}`, "Bob"},
		{"single wildcard first match", "items[*].price", `{"items": [{"price": 10}, {"price": 20}]}`, float64(10)},
		{"wildcard skips non-matching elements", "items[*].price", `{"items": [{"sku": 1}, {"price": 20}]}`, float64(20)},
		{"wildcard on object sorted keys", "*.value", `{"z": {"value": 1}, "a": {"value": 2}}`, float64(2)},
		{"nested wildcards", "orders[*].items[*].price", `{"orders": [{"items": []}, {"items": [{"price": 300}]}]}`, float64(300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ParsePath(tt.field)
			if err != nil {
				t.Fatalf("ParsePath() error = %v", err)
			}
			result, err := Resolve(path, json.RawMessage(tt.data))
			if err != nil {
				t.Fatalf("Resolve() error = %v, want nil", err)
			}
			if !result.Found || result.Value != tt.expected {
				t.Errorf("Resolve() = %+v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestResolve_ResolvedPath(t *testing.T) {
	path, _ := ParsePath("items[*].price")
	result, err := Resolve(path, json.RawMessage(`{"items": [{"sku": 1}, {"price": 20}]}`))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := FormatPath(result.ResolvedPath); got != "items[1].price" {
		t.Errorf("ResolvedPath = %s, want items[1].price", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		field string
		data  string
	}{
		{"missing key", "missing", `{}`},
		{"index out of range", "a[3]", `{"a": [1]}`},
		{"index into object", "a[0]", `{"a": {"b": 1}}`},
		{"key into array", "a.b", `{"a": [1]}`},
		{"null intermediate", "user.name", `{"user": null}`},
		{"scalar intermediate", "user.name", `{"user": "x"}`},
		{"empty array wildcard", "a[*]", `{"a": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := ParsePath(tt.field)
			_, err := Resolve(path, json.RawMessage(tt.data))
			if !errors.Is(err, types.ErrFieldNotFound) {
				t.Errorf("Resolve() error = %v, want ErrFieldNotFound", err)
			}
		})
	}
}

func TestResolve_Limits(t *testing.T) {
	deep := make([]types.PathSegment, types.MaxPathDepth+1)
	for i := range deep {
		deep[i] = types.PathSegment{Key: "a"}
	}
	if _, err := Resolve(deep, json.RawMessage(`{}`)); err != types.ErrPathTooDeep {
		t.Errorf("Resolve(deep) error = %v, want ErrPathTooDeep", err)
	}

	wild := []types.PathSegment{{Wildcard: true}, {Wildcard: true}, {Wildcard: true}}
	if _, err := ResolveValue(wild, map[string]any{}); err != types.ErrTooManyWildcards {
		t.Errorf("ResolveValue(wild) error = %v, want ErrTooManyWildcards", err)
	}
}

// Property-based test: resolution never crashes
func TestResolve_PropertyNeverCrashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolution never crashes regardless of input", prop.ForAll(
		func(depth int, wildcards int, useArray bool) bool {
			path := make([]types.PathSegment, depth)
			wildcardCount := 0
			for i := 0; i < depth; i++ {
				if wildcardCount < wildcards && i%2 == 0 {
					path[i] = types.PathSegment{Wildcard: true}
					wildcardCount++
				} else if useArray && i%3 == 0 {
					path[i] = types.PathSegment{Index: i, IsIndex: true}
				} else {
					path[i] = types.PathSegment{Key: "key"}
				}
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Resolve() panicked: %v", r)
				}
			}()

			_, _ = Resolve(path, json.RawMessage(`{"key": [{"key": "value"}]}`))
			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 5),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property-based test: formatting a parsed path parses back to the same path
func TestParsePath_PropertyFormatRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("ParsePath(FormatPath(p)) == p", prop.ForAll(
		func(keys []string, index int, wildcard bool) bool {
			path := []types.PathSegment{{Key: "root"}}
			for _, k := range keys {
				if k == "" || strings.ContainsAny(k, ".[]*") {
					continue
				}
				path = append(path, types.PathSegment{Key: k})
			}
			if wildcard {
				path = append(path, types.PathSegment{Wildcard: true})
			} else {
				path = append(path, types.PathSegment{Index: index, IsIndex: true})
			}
			if len(path) > types.MaxPathDepth {
				return true
			}

			back, err := ParsePath(FormatPath(path))
			if err != nil || len(back) != len(path) {
				return false
			}
			for i := range back {
				if back[i] != path[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.AlphaString()),
		gen.IntRange(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
