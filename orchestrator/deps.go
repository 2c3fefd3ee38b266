package orchestrator

import (
	"fmt"
	"sync"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/agent/benchmarker"
	"github.com/kadirpekel/studioforge/agent/character"
	"github.com/kadirpekel/studioforge/agent/composer"
	"github.com/kadirpekel/studioforge/agent/imagegen"
	"github.com/kadirpekel/studioforge/agent/imageprompter"
	"github.com/kadirpekel/studioforge/agent/planner"
	"github.com/kadirpekel/studioforge/agent/voice"
	"github.com/kadirpekel/studioforge/benchmark"
	"github.com/kadirpekel/studioforge/pathpolicy"
	"github.com/kadirpekel/studioforge/progress"
	"github.com/kadirpekel/studioforge/session"
)

// Dependencies bundles every adapter, builder, and setting a stage agent
// needs. One set is shared read-only across every session; only the
// progress Emitter each constructed agent receives is session-specific.
type Dependencies struct {
	Metadata *adapter.Metadata
	Vision   *adapter.Vision
	LLM      *adapter.LLM
	Browser  *adapter.Browser
	Cache    *benchmark.Cache
	Workflow *adapter.Workflow
	TTS      *adapter.TTS

	Subprocess  *adapter.Subprocess
	ScratchBase string
	FFmpegPath  string
	FFprobePath string
	ComposerBurnIn bool

	PlannerTemplate planner.Template

	CharacterBuilder character.WorkflowBuilder

	ImagePrompterVisualTag string

	ImageGenBuilder  imagegen.WorkflowBuilder
	ImageGenFrames   imagegen.FrameExtractor
	ImageGenOptions  imagegen.Options

	YouTubeExtractor   voice.YouTubeExtractor
	VoiceSamples       []voice.Sample
	VoicePresetSpeaker string
}

// AgentFactory constructs and caches one agent instance per (session,
// stage) pair. A session only ever has its CURRENT stage's agent live:
// once a stage completes its Data is already merged into the durable
// session context, so the agent instance (which only holds in-flight
// phase state like "which workflow edit are we mid-review on") is
// discarded. This is a deliberate choice to keep agent state as process
// working memory rather than a second persistence layer alongside the
// Session Store: a process restart mid-stage loses that stage's
// in-progress review state, but never loses anything already merged
// into context.
type AgentFactory struct {
	deps   Dependencies
	policy *pathpolicy.Policy
	reg    *progress.Registry

	mu        sync.Mutex
	instances map[string]agent.Agent
}

// NewAgentFactory builds a factory bound to one set of dependencies, the
// path policy that resolves each session's output directories, and the
// shared Progress Bus registry.
func NewAgentFactory(deps Dependencies, policy *pathpolicy.Policy, reg *progress.Registry) *AgentFactory {
	return &AgentFactory{deps: deps, policy: policy, reg: reg, instances: make(map[string]agent.Agent)}
}

func instanceKey(sessionID string, stage session.Stage) string {
	return sessionID + "|" + string(stage)
}

// forStage returns the cached agent for sessionID's stage, constructing
// it on first use.
func (f *AgentFactory) forStage(sessionID string, stage session.Stage) agent.Agent {
	key := instanceKey(sessionID, stage)

	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.instances[key]; ok {
		return a
	}
	_, emit := f.reg.Bind(sessionID)
	a := f.construct(sessionID, stage, emit)
	if a != nil {
		f.instances[key] = a
	}
	return a
}

// evict drops a session's cached instance for stage, called once that
// stage has completed and will never become active again.
func (f *AgentFactory) evict(sessionID string, stage session.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.instances, instanceKey(sessionID, stage))
}

// evictSession drops every cached instance for sessionID, called on
// session delete.
func (f *AgentFactory) evictSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := sessionID + "|"
	for k := range f.instances {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(f.instances, k)
		}
	}
}

func (f *AgentFactory) construct(sessionID string, stage session.Stage, emit progress.Emitter) agent.Agent {
	d := f.deps
	switch stage {
	case session.StageChannelName:
		return planner.New(planner.ModeChannelName, d.LLM, d.PlannerTemplate, emit)
	case session.StageBenchmarking:
		return benchmarker.New(d.Metadata, d.Vision, d.LLM, d.Browser, d.Cache, emit)
	case session.StageCharacter:
		return character.New(d.Vision, d.Workflow, d.CharacterBuilder, emit)
	case session.StageVideoIdeas:
		return planner.New(planner.ModeVideoIdeas, d.LLM, d.PlannerTemplate, emit)
	case session.StageScript:
		return planner.New(planner.ModeScript, d.LLM, d.PlannerTemplate, emit)
	case session.StageImagePrompt:
		return imageprompter.New(d.LLM, d.ImagePrompterVisualTag, emit)
	case session.StageImageGenerate:
		return imagegen.New(d.Workflow, d.Vision, d.ImageGenFrames, d.ImageGenBuilder, d.ImageGenOptions, emit)
	case session.StageVoiceover:
		return voice.New(d.TTS, d.YouTubeExtractor, d.VoiceSamples, d.VoicePresetSpeaker, f.policy.SessionSubdir(sessionID, "audio"), emit)
	case session.StageCompose:
		return composer.New(d.Subprocess, d.ScratchBase, d.FFmpegPath, d.FFprobePath, d.ComposerBurnIn, f.policy.SessionSubdir(sessionID, "video"), emit)
	default:
		// StageTTSSettings has no agent of its own (see orchestrator.go);
		// StageCompleted is terminal. Both are handled by the driver loop
		// before it ever calls forStage.
		panic(fmt.Sprintf("orchestrator: no agent for stage %s", stage))
	}
}
