// Package api provides the gRPC session service that lets remote renderers
// drive query builders.
//
// Each session owns one builder.Builder. The builder is not safe for
// concurrent use, so every request on a session holds that session's mutex
// for its whole duration: one writer per tree, edits applied in arrival
// order. Sessions are independent and proceed in parallel.
package api

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/solatis/querybuilder/internal/builder"
	"github.com/solatis/querybuilder/internal/core/config"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/store"
	"github.com/solatis/querybuilder/internal/tree"
	"github.com/solatis/querybuilder/internal/types"
)

// QueryBuilderService implements QueryBuilderServer.
// Thin orchestration layer delegating to builder, rules, format and store.
type QueryBuilderService struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	id      string
	b       *builder.Builder
	changes int
}

// NewQueryBuilderService creates the service. st may be nil, in which case
// named sessions and SaveQuery fail with FailedPrecondition.
func NewQueryBuilderService(cfg *config.Config, st *store.Store, logger *slog.Logger) (*QueryBuilderService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryBuilderService{
		cfg:      cfg,
		store:    st,
		logger:   logger,
		sessions: make(map[string]*session),
	}, nil
}

// SessionCount returns the number of open sessions.
func (s *QueryBuilderService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// newSession builds, mounts and registers a session. onChange, when set,
// receives every notification after the mount snapshot; the mount snapshot
// only counts as a change. The builder is built outside s.mu.
func (s *QueryBuilderService) newSession(initial any, onChange builder.QueryChangeFunc) (*session, error) {
	if err := s.checkCapacity(); err != nil {
		return nil, err
	}

	sess := &session{id: uuid.NewString()}
	logger := s.logger.With("session_id", sess.id)

	mounted := false
	opts := s.cfg.Builder.Options(logger)
	opts.Query = initial
	opts.OnAddRule = func(rule *types.Rule, parentID string, q *types.RuleGroup) builder.Decision[*types.Rule] {
		if !s.withinCost(q, parentID, rule) {
			logger.Info("add rule rejected: query cost limit", "parent_id", parentID)
			return builder.Abort[*types.Rule]()
		}
		return builder.Proceed(rule)
	}
	opts.OnAddGroup = func(group *types.RuleGroup, parentID string, q *types.RuleGroup) builder.Decision[*types.RuleGroup] {
		if !s.withinCost(q, parentID, group) {
			logger.Info("add group rejected: query cost limit", "parent_id", parentID)
			return builder.Abort[*types.RuleGroup]()
		}
		return builder.Proceed(group)
	}
	opts.OnQueryChange = func(q *types.RuleGroup) {
		sess.changes++
		if mounted && onChange != nil {
			onChange(q)
		}
	}

	sess.b = builder.New(opts)
	sess.b.Mount()
	mounted = true

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.cfg.Server.MaxSessions {
		return nil, fmt.Errorf("%w: %d sessions open", errTooManySessions, len(s.sessions))
	}
	s.sessions[sess.id] = sess

	logger.Info("session opened", "sessions", len(s.sessions))
	return sess, nil
}

func (s *QueryBuilderService) checkCapacity() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.cfg.Server.MaxSessions {
		return fmt.Errorf("%w: %d sessions open", errTooManySessions, len(s.sessions))
	}
	return nil
}

// lookup returns the session with id, locked. Callers must unlock it.
func (s *QueryBuilderService) lookup(id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	return sess, nil
}

func (s *QueryBuilderService) closeSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %q", types.ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	s.logger.Info("session closed", "session_id", id, "sessions", len(s.sessions))
	return nil
}

// withinCost reports whether q stays within the configured evaluation cost
// once node is appended to parentID. q is the interceptor's copy. Trees the
// evaluator cannot compile (e.g. custom combinators) are not limited.
func (s *QueryBuilderService) withinCost(q *types.RuleGroup, parentID string, node types.Node) bool {
	limit := s.cfg.Server.MaxQueryCost
	if limit <= 0 {
		return true
	}
	parent := tree.FindGroup(parentID, q)
	if parent == nil {
		return true
	}
	parent.Rules = append(parent.Rules, node)
	return costWithin(q, limit)
}

func costWithin(q *types.RuleGroup, limit int) bool {
	if limit <= 0 {
		return true
	}
	compiled, err := rules.Compile(q)
	if err != nil {
		return true
	}
	return rules.QueryCost(compiled) <= limit
}
