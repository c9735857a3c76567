package tree

import (
	"testing"

	"github.com/solatis/querybuilder/internal/types"
)

func fixture() *types.RuleGroup {
	return &types.RuleGroup{
		ID:         "g-root",
		Combinator: "and",
		Rules: []types.Node{
			&types.Rule{ID: "r-1", Field: "age", Operator: ">", Value: 21},
			&types.RuleGroup{
				ID:         "g-a",
				Combinator: "or",
				Rules: []types.Node{
					&types.Rule{ID: "r-2", Field: "name", Operator: "=", Value: "x"},
					&types.RuleGroup{
						ID:         "g-b",
						Combinator: "and",
						Rules: []types.Node{
							&types.Rule{ID: "r-3", Field: "city", Operator: "=", Value: "y"},
						},
					},
				},
			},
			&types.Rule{ID: "r-4", Field: "zip", Operator: "=", Value: "z"},
		},
	}
}

func TestFindNode(t *testing.T) {
	root := fixture()

	tests := []struct {
		id       string
		wantKind types.NodeKind
		found    bool
	}{
		{"g-root", types.NodeKindGroup, true},
		{"r-1", types.NodeKindRule, true},
		{"g-a", types.NodeKindGroup, true},
		{"r-3", types.NodeKindRule, true},
		{"r-4", types.NodeKindRule, true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n := FindNode(tt.id, root)
			if !tt.found {
				if n != nil {
					t.Fatalf("FindNode(%s) = %v, want nil", tt.id, n)
				}
				return
			}
			if n == nil {
				t.Fatalf("FindNode(%s) = nil, want node", tt.id)
			}
			if n.NodeID() != tt.id {
				t.Errorf("FindNode(%s).NodeID() = %s", tt.id, n.NodeID())
			}
			if n.Kind() != tt.wantKind {
				t.Errorf("FindNode(%s).Kind() = %v, want %v", tt.id, n.Kind(), tt.wantKind)
			}
		})
	}
}

func TestFindNode_ReturnsLiveNode(t *testing.T) {
	root := fixture()
	g := FindGroup("g-b", root)
	if g == nil {
		t.Fatal("FindGroup(g-b) = nil")
	}
	g.Combinator = "or"
	if root.Rules[1].(*types.RuleGroup).Rules[1].(*types.RuleGroup).Combinator != "or" {
		t.Error("FindGroup() did not return a reference into the searched tree")
	}
	if FindGroup("r-1", root) != nil {
		t.Error("FindGroup(r-1) returned a group for a rule id")
	}
}

func TestGetLevel(t *testing.T) {
	root := fixture()

	tests := []struct {
		id   string
		want int
	}{
		{"g-root", 0},
		{"r-1", 1},
		{"g-a", 1},
		{"r-2", 2},
		{"g-b", 2},
		{"r-3", 3},
		{"r-4", 1},
		{"missing", LevelNotFound},
	}

	for _, tt := range tests {
		if got := GetLevel(tt.id, 0, root); got != tt.want {
			t.Errorf("GetLevel(%s) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestIndexOf(t *testing.T) {
	root := fixture()
	if got := IndexOf(root, "r-4"); got != 2 {
		t.Errorf("IndexOf(r-4) = %d, want 2", got)
	}
	if got := IndexOf(root, "r-3"); got != -1 {
		t.Errorf("IndexOf(r-3) = %d, want -1 (not a direct child)", got)
	}
	if got := IndexOf(nil, "r-1"); got != -1 {
		t.Errorf("IndexOf(nil) = %d, want -1", got)
	}
}

func TestWalk_PreOrder(t *testing.T) {
	got := IDs(fixture())
	want := []string{"g-root", "r-1", "g-a", "r-2", "g-b", "r-3", "r-4"}
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegenerateIDs(t *testing.T) {
	orig := fixture()
	cp, ok := RegenerateIDs(orig.Rules[1]).(*types.RuleGroup)
	if !ok {
		t.Fatalf("RegenerateIDs() returned %T, want *types.RuleGroup", cp)
	}

	origIDs := make(map[string]bool)
	for _, id := range IDs(orig) {
		origIDs[id] = true
	}
	for _, id := range IDs(cp) {
		if origIDs[id] {
			t.Errorf("RegenerateIDs() kept id %s", id)
		}
	}
	if cp.Combinator != "or" || len(cp.Rules) != 2 {
		t.Errorf("RegenerateIDs() changed shape: %+v", cp)
	}
	if cp.Rules[0].(*types.Rule).Field != "name" {
		t.Errorf("RegenerateIDs() lost rule content")
	}
}
