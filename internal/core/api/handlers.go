package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/solatis/querybuilder/internal/builder"
	"github.com/solatis/querybuilder/internal/format"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/store"
	"github.com/solatis/querybuilder/internal/types"
	"google.golang.org/protobuf/types/known/structpb"
)

// OpenSession starts a builder session. With a name, the latest saved
// version of that query is the starting tree unless a query is supplied;
// with record set, every accepted change is saved as a new version.
func (s *QueryBuilderService) OpenSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Query  any    `mapstructure:"query"`
		Name   string `mapstructure:"name"`
		Record bool   `mapstructure:"record"`
	}
	if err := decodeRequest(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if in.Record && in.Name == "" {
		return nil, toStatus(fmt.Errorf("%w: record requires name", errMissingArgument))
	}
	if in.Name != "" && s.store == nil {
		return nil, toStatus(errNoStore)
	}

	initial := in.Query
	if in.Name != "" && initial == nil {
		rec, err := s.store.Get(ctx, in.Name)
		switch {
		case err == nil:
			initial = rec.Query
		case !errors.Is(err, store.ErrQueryNotFound):
			return nil, toStatus(err)
		}
	}
	if initial != nil && s.cfg.Server.MaxQueryCost > 0 {
		probe := builder.New(s.cfg.Builder.Options(s.logger))
		probe.SetQuery(initial)
		if !costWithin(probe.Query(), s.cfg.Server.MaxQueryCost) {
			return nil, toStatus(errQueryTooCostly)
		}
	}

	var record builder.QueryChangeFunc
	if in.Record {
		// Recording outlives this request.
		record = store.Recorder(context.Background(), s.store, in.Name, s.logger.With("query", in.Name))
	}

	sess, err := s.newSession(initial, record)
	if err != nil {
		return nil, toStatus(err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	view, err := sessionView(sess)
	if err != nil {
		return nil, toStatus(err)
	}
	if view["schema"], err = schemaView(sess.b); err != nil {
		return nil, toStatus(err)
	}
	return respond(view)
}

// Apply runs a list of edits in order. Edits that do not apply (missing
// nodes, vetoes, the cost limit) are reported as false in "applied"; an
// unknown or malformed edit stops the batch with INVALID_ARGUMENT, keeping
// the edits before it.
func (s *QueryBuilderService) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		SessionID string `mapstructure:"sessionId"`
		Edits     any    `mapstructure:"edits"`
	}
	if err := decodeRequest(req, &in); err != nil {
		return nil, toStatus(err)
	}
	edits, err := builder.DecodeEdits(in.Edits)
	if err != nil {
		return nil, toStatus(fmt.Errorf("%w: %v", errMissingArgument, err))
	}

	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	defer sess.mu.Unlock()

	applied := make([]any, 0, len(edits))
	for i, e := range edits {
		if err := ctx.Err(); err != nil {
			return nil, toStatus(err)
		}
		if e.Op == builder.EditSet && s.cfg.Server.MaxQueryCost > 0 {
			probe := builder.New(s.cfg.Builder.Options(s.logger))
			probe.SetQuery(e.Query)
			if !costWithin(probe.Query(), s.cfg.Server.MaxQueryCost) {
				return nil, toStatus(fmt.Errorf("edit %d: %w", i, errQueryTooCostly))
			}
		}
		changed, err := sess.b.Apply(e)
		if err != nil {
			return nil, toStatus(fmt.Errorf("edit %d: %w", i, err))
		}
		applied = append(applied, changed)
	}

	view, err := sessionView(sess)
	if err != nil {
		return nil, toStatus(err)
	}
	view["applied"] = applied
	if compiled, err := rules.Compile(sess.b.Query()); err == nil {
		view["cost"] = rules.QueryCost(compiled)
	}
	return respond(view)
}

// GetQuery returns the session state. format "sql" adds "sql" and "args",
// format "expr" adds "expr".
func (s *QueryBuilderService) GetQuery(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		SessionID string `mapstructure:"sessionId"`
		Format    string `mapstructure:"format"`
	}
	if err := decodeRequest(req, &in); err != nil {
		return nil, toStatus(err)
	}

	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	defer sess.mu.Unlock()

	view, err := sessionView(sess)
	if err != nil {
		return nil, toStatus(err)
	}

	switch in.Format {
	case "", "json":
	case "sql":
		sql, args, err := format.ToSQL(sess.b.Query(), format.SQLOptions{})
		if err != nil {
			return nil, toStatus(err)
		}
		view["sql"] = sql
		if view["args"], err = plain(args); err != nil {
			return nil, toStatus(err)
		}
	case "expr":
		code, err := format.ToExpr(sess.b.Query())
		if err != nil {
			return nil, toStatus(err)
		}
		view["expr"] = code
	default:
		return nil, toStatus(fmt.Errorf("%w: %q", types.ErrUnknownFormat, in.Format))
	}
	return respond(view)
}

// Evaluate matches payload against the session's current query.
func (s *QueryBuilderService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID := req.GetFields()["sessionId"].GetStringValue()
	payload := req.GetFields()["payload"]
	if payload == nil {
		return nil, toStatus(fmt.Errorf("%w: payload", errMissingArgument))
	}

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	q := sess.b.Query()
	sess.mu.Unlock()

	engine, err := rules.NewEngine(q, s.cfg.Eval.CompileOptions())
	if err != nil {
		return nil, toStatus(err)
	}
	result, err := engine.MatchValue(payload.AsInterface())
	if err != nil {
		return nil, toStatus(err)
	}

	out := map[string]any{
		"matched": result.Matched,
		"cost":    engine.Cost(),
	}
	if result.Matched && result.MatchedRule != "" {
		out["matchedRule"] = result.MatchedRule
		out["matchedField"] = rules.FormatPath(result.MatchedField)
		if out["matchedValue"], err = plain(result.MatchedValue); err != nil {
			return nil, toStatus(err)
		}
	}
	results := make(map[string]any, len(result.Results))
	for id, ok := range result.Results {
		results[id] = ok
	}
	out["results"] = results
	return respond(out)
}

// SaveQuery stores the session's current query as the next version of name.
func (s *QueryBuilderService) SaveQuery(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		SessionID string `mapstructure:"sessionId"`
		Name      string `mapstructure:"name"`
	}
	if err := decodeRequest(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if in.Name == "" {
		return nil, toStatus(fmt.Errorf("%w: name", errMissingArgument))
	}
	if s.store == nil {
		return nil, toStatus(errNoStore)
	}

	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	q := sess.b.Query()
	sess.mu.Unlock()

	version, err := s.store.Save(ctx, in.Name, q)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"name": in.Name, "version": version})
}

// CloseSession discards a session.
func (s *QueryBuilderService) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["sessionId"].GetStringValue()
	if err := s.closeSession(id); err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{})
}
