// Package orchestrator implements the stage sequencer: the component
// that owns the strict stage order, routes each incoming message to the
// current stage's agent, translates its Result into session context,
// and auto-advances through any stage whose agent completes without
// needing a reply.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/pathpolicy"
	"github.com/kadirpekel/studioforge/progress"
	"github.com/kadirpekel/studioforge/session"
)

// Orchestrator drives one or more sessions through the pipeline.
type Orchestrator struct {
	store    session.Store
	factory  *AgentFactory
	policy   *pathpolicy.Policy
	progress *progress.Registry
}

// New builds an Orchestrator.
func New(store session.Store, factory *AgentFactory, policy *pathpolicy.Policy, reg *progress.Registry) *Orchestrator {
	return &Orchestrator{store: store, factory: factory, policy: policy, progress: reg}
}

// StartWorkflow begins a new session: it records the opening request as
// the CHANNEL_NAME stage's triggering message and runs the execute
// chain from there.
func (o *Orchestrator) StartWorkflow(ctx context.Context, sessionID, userRequest string) (agent.Result, error) {
	s, err := o.store.GetOrCreate(sessionID)
	if err != nil {
		return agent.Result{}, err
	}
	o.progress.Bind(s.ID)

	s.Context[session.KeyUserRequest] = userRequest
	s.AppendMessage(session.Message{Role: "user", Content: userRequest})

	result, err := o.runChain(ctx, s, s.CurrentStage)
	if err != nil {
		return result, err
	}
	if err := o.store.Save(s); err != nil {
		return result, err
	}
	return result, nil
}

// ProcessMessage is the entry point for every message after the first:
// it loads the session, routes to the current stage, merges the
// result, and follows the execute chain when that result completes the
// stage without asking for feedback.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, text string, images []string) (agent.Result, error) {
	s, err := o.store.Load(sessionID)
	if err != nil {
		return agent.Result{}, err
	}
	o.progress.Bind(s.ID)
	s.AppendMessage(session.Message{Role: "user", Content: text, Images: images})

	if s.CurrentStage == session.StageCompleted {
		result := agent.Result{Success: true, Step: "orchestrator.completed", Status: agent.StatusCompleted}
		return result, nil
	}

	if agent.IsSkip(text) {
		result, err := o.skipCurrentStage(ctx, s, text, images)
		if err != nil {
			return result, err
		}
		if err := o.store.Save(s); err != nil {
			return result, err
		}
		return result, nil
	}

	current := s.CurrentStage
	a := o.factory.forStage(s.ID, current)
	result, err := a.HandleFeedback(ctx, text, images)
	if err != nil {
		return result, err
	}
	mergeResult(current, s.Context, result.Data)

	result, err = o.continueIfComplete(ctx, s, current, result)
	if err != nil {
		return result, err
	}
	if err := o.store.Save(s); err != nil {
		return result, err
	}
	return result, nil
}

// skipCurrentStage gives the active agent one cleanup call (releasing
// whatever resources or partial state it holds) and moves straight to
// the next stage regardless of what that call returns: a skip is a
// user override of the stage's own completion judgment, not a normal
// completion.
func (o *Orchestrator) skipCurrentStage(ctx context.Context, s *session.Session, text string, images []string) (agent.Result, error) {
	current := s.CurrentStage
	if a := o.factory.forStage(s.ID, current); a != nil {
		_, _ = a.HandleFeedback(ctx, text, images)
	}
	o.factory.evict(s.ID, current)

	next := session.Next(current)
	s.Advance(next)
	if next == session.StageCompleted {
		return agent.Result{Success: true, Step: "orchestrator.completed", Status: agent.StatusCompleted}, nil
	}
	return o.runChain(ctx, s, next)
}

// continueIfComplete advances past the stage that just produced result,
// running the execute chain forward, when result finished the stage
// without asking for feedback. Otherwise result stands: the stage stays
// active and the next message goes back through HandleFeedback.
func (o *Orchestrator) continueIfComplete(ctx context.Context, s *session.Session, stage session.Stage, result agent.Result) (agent.Result, error) {
	if result.NeedsFeedback || result.Status != agent.StatusCompleted {
		return result, nil
	}

	o.factory.evict(s.ID, stage)
	next := session.Next(stage)
	s.Advance(next)
	if next == session.StageCompleted {
		return result, nil
	}
	return o.runChain(ctx, s, next)
}

// runChain calls Execute for stage and every subsequent stage whose
// result completes without needing feedback, stopping at the first
// stage that asks for a reply or at COMPOSE's terminal result.
// StageTTSSettings is a no-op bridge: the Voice agent's own Execute
// needs the finished script as input, which does not exist yet at
// TTS_SETTINGS time (the stage exists in the order so clients can show
// a "choose a voice" step before VIDEO_IDEAS/SCRIPT run, but the actual
// voice-option flow has to wait until VOICEOVER).
func (o *Orchestrator) runChain(ctx context.Context, s *session.Session, stage session.Stage) (agent.Result, error) {
	for {
		if stage == session.StageTTSSettings {
			next := session.Next(stage)
			s.Advance(next)
			stage = next
			continue
		}

		a := o.factory.forStage(s.ID, stage)
		input := buildInput(stage, s.Context)
		result, err := a.Execute(ctx, input)
		if err != nil {
			return result, err
		}
		mergeResult(stage, s.Context, result.Data)

		if result.NeedsFeedback || result.Status != agent.StatusCompleted {
			return result, nil
		}

		o.factory.evict(s.ID, stage)
		next := session.Next(stage)
		s.Advance(next)
		if next == session.StageCompleted {
			return result, nil
		}
		stage = next
	}
}

// GetSession returns a session's current state for status endpoints.
func (o *Orchestrator) GetSession(id string) (*session.Session, error) {
	return o.store.Load(id)
}

// DeleteSession removes a session's persisted state, its progress bus,
// any cached agent instances, and every output directory whose name
// contains id (images, audio, video, and the final composed output). It
// returns the identifiers of everything it removed.
func (o *Orchestrator) DeleteSession(id string) ([]string, error) {
	o.factory.evictSession(id)
	o.progress.Drop(id)

	var deleted []string
	if o.policy != nil {
		dirs, err := o.policy.SessionsDirsMatching(id)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if err := os.RemoveAll(dir); err != nil {
				return deleted, err
			}
			deleted = append(deleted, filepath.Base(dir))
		}
	}

	if err := o.store.Delete(id); err != nil {
		return deleted, err
	}
	deleted = append(deleted, id)
	return deleted, nil
}
