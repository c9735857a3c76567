package api

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/querybuilder/internal/builder"
	"github.com/solatis/querybuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// decodeRequest decodes req into out with the model's loose decoding rules.
func decodeRequest(req *structpb.Struct, out any) error {
	if err := types.Decode(req.AsMap(), out); err != nil {
		return fmt.Errorf("%w: %v", errMissingArgument, err)
	}
	return nil
}

// plain converts v to the JSON value space structpb accepts by a JSON round
// trip, so the wire shape is exactly the documented JSON model.
func plain(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func respond(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

// sessionView is the state returned after every session request.
func sessionView(sess *session) (map[string]any, error) {
	q, err := plain(sess.b.Query())
	if err != nil {
		return nil, err
	}
	outcome := sess.b.Validation()
	vm, err := plain(outcome.Map)
	if err != nil {
		return nil, err
	}

	view := map[string]any{
		"sessionId":  sess.id,
		"query":      q,
		"validation": vm,
		"className":  sess.b.ClassName(),
		"changes":    sess.changes,
	}
	if outcome.Overall != nil {
		view["valid"] = *outcome.Overall
	}
	return view, nil
}

// schemaView is the data part of the builder schema; callbacks are replaced
// by the Apply edit operations on the wire.
func schemaView(b *builder.Builder) (map[string]any, error) {
	sc := b.Schema()
	operators := make(map[string]any, len(sc.Fields))
	for _, f := range sc.Fields {
		operators[f.Name] = b.Resolver().Operators(f.Name)
	}

	return plainMap(map[string]any{
		"fields":                      sc.Fields,
		"combinators":                 sc.Combinators,
		"operators":                   operators,
		"translations":                sc.Translations,
		"controlClassnames":           sc.Classnames,
		"showCombinatorsBetweenRules": sc.ShowCombinatorsBetweenRules,
		"showNotToggle":               sc.ShowNotToggle,
		"showCloneButtons":            sc.ShowCloneButtons,
		"autoSelectField":             sc.AutoSelectField,
	})
}

func plainMap(m map[string]any) (map[string]any, error) {
	v, err := plain(m)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}
