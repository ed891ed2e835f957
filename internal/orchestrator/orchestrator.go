// Package orchestrator drives a design-exploration session through its
// phases. Every mutating operation holds the session's lock across
// load, agent call, merge and save, so rounds are never lost or
// renumbered under concurrent requests.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/embody-dev/embody/internal/agent"
	"github.com/embody-dev/embody/internal/config"
	"github.com/embody-dev/embody/internal/log"
	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/tokens"
)

// ArtifactName is the markdown file written next to a session's state on
// finalize.
const ArtifactName = "design-direction.md"

// Operation names, used in errors, metrics and the journal.
const (
	OpCreate   = "create"
	OpContext  = "gather_context"
	OpGenerate = "generate_concepts"
	OpRefine   = "refine"
	OpFinalize = "finalize"
	OpDelete   = "delete"
)

// Options wires an Orchestrator. Store, Executor and Pool are required.
type Options struct {
	Store       *session.Store
	Index       *session.Index
	Journal     *log.Journal
	Executor    agent.Executor
	Pool        *agent.Pool
	Parser      *agent.Parser
	Extractor   *tokens.Extractor
	Exploration config.ExplorationConfig
	OpTimeout   time.Duration
	Metrics     *Metrics
	Logger      *zap.Logger
}

// Orchestrator implements the session phase machine.
type Orchestrator struct {
	store     *session.Store
	index     *session.Index
	journal   *log.Journal
	exec      agent.Executor
	pool      *agent.Pool
	parser    *agent.Parser
	extractor *tokens.Extractor
	explore   config.ExplorationConfig
	opTimeout time.Duration
	metrics   *Metrics
	logger    *zap.Logger
	locks     *session.Locks

	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator. Missing optional parts get defaults.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:     opts.Store,
		index:     opts.Index,
		journal:   opts.Journal,
		exec:      opts.Executor,
		pool:      opts.Pool,
		parser:    opts.Parser,
		extractor: opts.Extractor,
		explore:   opts.Exploration,
		opTimeout: opts.OpTimeout,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		locks:     session.NewLocks(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	if o.parser == nil {
		o.parser = agent.DefaultParser()
	}
	if o.extractor == nil {
		o.extractor = &tokens.Extractor{Logger: opts.Logger}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.explore == (config.ExplorationConfig{}) {
		o.explore = config.DefaultConfig().Exploration
	}
	return o
}

// ContextInput is the designer's stated intent.
type ContextInput struct {
	Goal        string
	Qualities   []string
	Constraints []string
}

// Create extracts tokens from repoPath and stores a new session in
// context_gathering.
func (o *Orchestrator) Create(ctx context.Context, repoPath string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extracted := o.extractor.Extract(repoPath)
	s := session.New(o.newID(), repoPath, extracted, o.now())

	if err := o.store.Save(s); err != nil {
		err = &OpError{Op: OpCreate, SessionID: s.ID, Err: err}
		o.metrics.observeOp(OpCreate, err)
		return nil, err
	}
	o.metrics.observeOp(OpCreate, nil)
	o.committed(s, log.Event{
		Event:  log.EventSessionCreated,
		Tokens: extracted.Len(),
		Data:   map[string]any{"source_files": extracted.SourceFiles, "repo_path": repoPath},
	})
	return s, nil
}

// Get reads a session's persisted state.
func (o *Orchestrator) Get(id string) (*session.Session, error) {
	s, err := o.store.Load(id)
	if err != nil {
		return nil, &OpError{Op: "get", SessionID: id, Err: err}
	}
	return s, nil
}

type contextResponse struct {
	ParsedIntent map[string]any `json:"parsed_intent"`
	Guidance     map[string]any `json:"generation_guidance"`
}

// GatherContext interprets the designer's intent and advances the session
// to concept_generation.
func (o *Orchestrator) GatherContext(ctx context.Context, id string, in ContextInput) (*session.Session, error) {
	return o.mutate(ctx, OpContext, id, func(ctx context.Context, s *session.Session) (session.Patch, log.Event, error) {
		if s.Phase != session.PhaseContextGathering {
			return session.Patch{}, log.Event{}, badRequest("context can only be gathered in %s, session is in %s", session.PhaseContextGathering, s.Phase)
		}
		if in.Goal == "" {
			return session.Patch{}, log.Event{}, badRequest("goal is required")
		}

		prompt, err := render(contextTmpl, contextData{
			Goal:        in.Goal,
			Qualities:   in.Qualities,
			Constraints: in.Constraints,
			Tokens:      pretty(s.ExtractedTokens),
		})
		if err != nil {
			return session.Patch{}, log.Event{}, err
		}

		var resp contextResponse
		if err := o.call(ctx, OpContext, s, prompt, &resp); err != nil {
			return session.Patch{}, log.Event{}, err
		}
		if resp.ParsedIntent == nil {
			return session.Patch{}, log.Event{}, &agent.ParseError{Err: errors.New("response has no parsed_intent")}
		}

		next := session.PhaseConceptGeneration
		return session.Patch{
			Phase: &next,
			Context: &session.Context{
				Goal:         in.Goal,
				Qualities:    nonNil(in.Qualities),
				Constraints:  in.Constraints,
				ParsedIntent: resp.ParsedIntent,
				Guidance:     resp.Guidance,
			},
		}, log.Event{Event: log.EventContextGathered}, nil
	})
}

type conceptsResponse struct {
	Concepts []session.Concept `json:"concepts"`
}

// GenerateConcepts asks for the first round of concepts and moves the
// session to feedback.
func (o *Orchestrator) GenerateConcepts(ctx context.Context, id string) (*session.Session, error) {
	return o.mutate(ctx, OpGenerate, id, func(ctx context.Context, s *session.Session) (session.Patch, log.Event, error) {
		if s.Phase != session.PhaseConceptGeneration {
			return session.Patch{}, log.Event{}, badRequest("concepts can only be generated in %s, session is in %s", session.PhaseConceptGeneration, s.Phase)
		}

		data := conceptsData{
			Min:    o.explore.MinConcepts,
			Max:    o.explore.MaxConcepts,
			Tokens: pretty(s.ExtractedTokens),
		}
		if s.Context != nil {
			data.Intent = pretty(s.Context.ParsedIntent)
			data.Guidance = pretty(s.Context.Guidance)
		}
		prompt, err := render(conceptsTmpl, data)
		if err != nil {
			return session.Patch{}, log.Event{}, err
		}

		var resp conceptsResponse
		if err := o.call(ctx, OpGenerate, s, prompt, &resp); err != nil {
			return session.Patch{}, log.Event{}, err
		}
		if err := checkConcepts(resp.Concepts); err != nil {
			return session.Patch{}, log.Event{}, err
		}
		o.checkCount(OpGenerate, s.ID, len(resp.Concepts), o.explore.MinConcepts, o.explore.MaxConcepts)

		rounds := append(append([]session.Round{}, s.Iterations...), session.Round{
			Round:     nextRound(s.Iterations),
			Concepts:  resp.Concepts,
			CreatedAt: o.now(),
		})
		next := session.PhaseFeedback
		return session.Patch{Phase: &next, Iterations: &rounds}, log.Event{
			Event:    log.EventConceptsGenerated,
			Round:    rounds[len(rounds)-1].Round,
			Concepts: len(resp.Concepts),
		}, nil
	})
}

type refineResponse struct {
	Concepts   []session.Concept `json:"concepts"`
	Confidence *float64          `json:"confidence"`
	Learned    string            `json:"learned"`
}

// Refine records feedback on the latest round and asks for refined
// concepts. The session advances to finalization only when the reported
// confidence is strictly above the configured threshold.
func (o *Orchestrator) Refine(ctx context.Context, id string, fb session.Feedback) (*session.Session, error) {
	return o.mutate(ctx, OpRefine, id, func(ctx context.Context, s *session.Session) (session.Patch, log.Event, error) {
		if len(s.Iterations) == 0 {
			return session.Patch{}, log.Event{}, badRequest("no prior rounds to refine")
		}
		if s.Phase != session.PhaseFeedback {
			return session.Patch{}, log.Event{}, badRequest("refinement is only possible in %s, session is in %s", session.PhaseFeedback, s.Phase)
		}

		fb = session.Feedback{Liked: nonNil(fb.Liked), Disliked: nonNil(fb.Disliked), Explored: nonNil(fb.Explored)}
		round := nextRound(s.Iterations)
		prompt, err := render(refineTmpl, refineData{
			Round:    round,
			Min:      o.explore.MinRefinements,
			Max:      o.explore.MaxRefinements,
			Previous: pretty(s.LastRound().Concepts),
			Liked:    fb.Liked,
			Disliked: fb.Disliked,
			Explored: fb.Explored,
		})
		if err != nil {
			return session.Patch{}, log.Event{}, err
		}

		var resp refineResponse
		if err := o.call(ctx, OpRefine, s, prompt, &resp); err != nil {
			return session.Patch{}, log.Event{}, err
		}
		if err := checkConcepts(resp.Concepts); err != nil {
			return session.Patch{}, log.Event{}, err
		}
		if resp.Confidence == nil {
			return session.Patch{}, log.Event{}, &agent.ParseError{Err: errors.New("response has no confidence")}
		}
		confidence := *resp.Confidence
		if confidence < 0 || confidence > 1 {
			return session.Patch{}, log.Event{}, &agent.ParseError{Err: fmt.Errorf("confidence %v outside [0,1]", confidence)}
		}
		o.checkCount(OpRefine, s.ID, len(resp.Concepts), o.explore.MinRefinements, o.explore.MaxRefinements)
		o.metrics.observeConfidence(confidence)

		rounds := append(append([]session.Round{}, s.Iterations...), session.Round{
			Round:      round,
			Concepts:   resp.Concepts,
			Feedback:   &fb,
			Confidence: confidence,
			Learned:    resp.Learned,
			CreatedAt:  o.now(),
		})
		next := session.PhaseFeedback
		if confidence > o.explore.ConfidenceThreshold {
			next = session.PhaseFinalization
		}
		return session.Patch{Phase: &next, Iterations: &rounds}, log.Event{
			Event:      log.EventConceptsRefined,
			Round:      round,
			Concepts:   len(resp.Concepts),
			Confidence: confidence,
		}, nil
	})
}

type finalizeResponse struct {
	Markdown       string         `json:"markdown"`
	FinalDirection map[string]any `json:"final_direction"`
}

// Finalize documents the selected concept, writes the markdown artifact
// and completes the session.
func (o *Orchestrator) Finalize(ctx context.Context, id, selected string) (*session.Session, error) {
	return o.mutate(ctx, OpFinalize, id, func(ctx context.Context, s *session.Session) (session.Patch, log.Event, error) {
		if s.Phase != session.PhaseFeedback && s.Phase != session.PhaseFinalization {
			return session.Patch{}, log.Event{}, badRequest("finalize needs %s or %s, session is in %s", session.PhaseFeedback, session.PhaseFinalization, s.Phase)
		}
		concept, ok := s.FindConcept(selected)
		if !ok {
			return session.Patch{}, log.Event{}, badRequest("concept %q is not part of this session", selected)
		}

		prompt, err := render(finalizeTmpl, finalizeData{
			SelectedID: selected,
			Selected:   pretty(concept),
			State:      pretty(s),
		})
		if err != nil {
			return session.Patch{}, log.Event{}, err
		}

		var resp finalizeResponse
		if err := o.call(ctx, OpFinalize, s, prompt, &resp); err != nil {
			return session.Patch{}, log.Event{}, err
		}
		if resp.Markdown == "" {
			return session.Patch{}, log.Event{}, &agent.ParseError{Err: errors.New("response has no markdown")}
		}

		path, err := o.store.WriteArtifact(s.ID, ArtifactName, []byte(resp.Markdown))
		if err != nil {
			return session.Patch{}, log.Event{}, err
		}

		next := session.PhaseCompleted
		patch := session.Patch{
			Phase:           &next,
			SelectedConcept: &selected,
			Documentation: &session.Documentation{
				Markdown:       resp.Markdown,
				FinalDirection: resp.FinalDirection,
				ArtifactPath:   path,
			},
		}
		return patch, log.Event{
			Event:    log.EventDirectionFinalized,
			Selected: selected,
			Data:     map[string]any{"artifact": path},
		}, nil
	})
}

// Delete removes a session, its artifacts, its index row and any cached
// agent handle.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	unlock, err := o.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	err = o.deleteLocked(ctx, id)
	if err != nil {
		err = &OpError{Op: OpDelete, SessionID: id, Err: err}
		o.metrics.observeOp(OpDelete, err)
		return err
	}
	o.metrics.observeOp(OpDelete, nil)
	if o.index != nil {
		if err := o.index.Remove(id); err != nil {
			o.logger.Warn("index remove failed", zap.String("session", id), zap.Error(err))
		}
	}
	if o.pool != nil {
		o.pool.Evict(id)
	}
	return nil
}

func (o *Orchestrator) deleteLocked(ctx context.Context, id string) error {
	release, err := o.store.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return o.store.Delete(id)
}

type stepFunc func(ctx context.Context, s *session.Session) (session.Patch, log.Event, error)

// mutate runs one phase operation under the session lock. The in-process
// lock orders callers sharing this Orchestrator; the store's file lock
// orders other processes over the same sessions directory. Both are held
// from load to save. Nothing is written unless step succeeds.
func (o *Orchestrator) mutate(ctx context.Context, op, id string, step stepFunc) (result *session.Session, err error) {
	if o.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opTimeout)
		defer cancel()
	}

	var phase session.Phase
	start := time.Now()
	defer func() {
		if err != nil {
			err = &OpError{Op: op, SessionID: id, Phase: phase, Err: err}
			o.failed(op, id, phase, err)
		}
		o.metrics.observeOp(op, err)
		o.logger.Debug("operation finished",
			zap.String("op", op),
			zap.String("session", id),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	}()

	if err := session.ValidateID(id); err != nil {
		return nil, err
	}
	unlock, err := o.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	release, err := o.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := o.store.Load(id)
	if err != nil {
		return nil, err
	}
	phase = s.Phase
	if s.Phase == session.PhaseCompleted {
		return nil, badRequest("session is completed")
	}

	patch, event, err := step(ctx, s)
	if err != nil {
		return nil, err
	}

	updated, err := o.store.Update(id, patch)
	if err != nil {
		return nil, err
	}
	event.DurationMs = time.Since(start).Milliseconds()
	o.committed(updated, event)
	return updated, nil
}

// call runs prompt through the session's agent handle and decodes the
// reply into v.
func (o *Orchestrator) call(ctx context.Context, op string, s *session.Session, prompt string, v any) error {
	h, err := o.pool.Get(ctx, s.ID)
	if err != nil {
		return &agent.ExecutionError{Err: fmt.Errorf("acquiring agent handle: %w", err)}
	}

	start := time.Now()
	text, err := o.exec.Execute(ctx, h, prompt)
	o.metrics.observeAgent(op, time.Since(start))
	if err != nil {
		var execErr *agent.ExecutionError
		if !errors.As(err, &execErr) {
			err = &agent.ExecutionError{Err: err}
		}
		return err
	}
	return o.parser.Decode(text, v)
}

// committed updates derived data after a successful save. Failures here
// are logged and never undo the commit.
func (o *Orchestrator) committed(s *session.Session, event log.Event) {
	if o.index != nil {
		if err := o.index.Upsert(s); err != nil {
			o.logger.Warn("index upsert failed", zap.String("session", s.ID), zap.Error(err))
		}
	}
	if o.journal != nil {
		event.Session = s.ID
		event.Phase = string(s.Phase)
		if err := o.journal.Append(event); err != nil {
			o.logger.Warn("journal append failed", zap.String("session", s.ID), zap.Error(err))
		}
	}
}

func (o *Orchestrator) failed(op, id string, phase session.Phase, err error) {
	o.logger.Info("operation failed",
		zap.String("op", op),
		zap.String("session", id),
		zap.String("kind", KindOf(err).String()),
		zap.Error(err))
	if o.journal == nil || !o.store.Exists(id) {
		return
	}
	if jerr := o.journal.Append(log.Event{
		Event:   log.EventPhaseFailed,
		Session: id,
		Phase:   string(phase),
		Op:      op,
		Error:   err.Error(),
	}); jerr != nil {
		o.logger.Warn("journal append failed", zap.String("session", id), zap.Error(jerr))
	}
}

func (o *Orchestrator) checkCount(op, id string, n, lo, hi int) {
	if (lo > 0 && n < lo) || (hi > 0 && n > hi) {
		o.logger.Warn("concept count outside requested range",
			zap.String("op", op),
			zap.String("session", id),
			zap.Int("count", n),
			zap.Int("min", lo),
			zap.Int("max", hi))
	}
}

// checkConcepts rejects rounds a designer could not react to: empty, or
// with missing or repeated ids.
func checkConcepts(concepts []session.Concept) error {
	if len(concepts) == 0 {
		return &agent.ParseError{Err: errors.New("response has no concepts")}
	}
	seen := make(map[string]bool, len(concepts))
	for i, c := range concepts {
		if c.ID == "" {
			return &agent.ParseError{Err: fmt.Errorf("concept %d has no id", i)}
		}
		if seen[c.ID] {
			return &agent.ParseError{Err: fmt.Errorf("duplicate concept id %q", c.ID)}
		}
		seen[c.ID] = true
	}
	return nil
}

// nextRound numbers a new round one past the highest so far.
func nextRound(rounds []session.Round) int {
	highest := 0
	for _, r := range rounds {
		if r.Round > highest {
			highest = r.Round
		}
	}
	return highest + 1
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
