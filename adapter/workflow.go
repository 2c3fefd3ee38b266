package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/kadirpekel/studioforge/errs"
)

// WorkflowStatus is one of the terminal/non-terminal poll states.
type WorkflowStatus string

const (
	WorkflowQueued  WorkflowStatus = "queued"
	WorkflowRunning WorkflowStatus = "running"
	WorkflowDone    WorkflowStatus = "done"
	WorkflowError   WorkflowStatus = "error"
)

// WorkflowSpec is an opaque DAG-of-nodes: node_id -> {class_type, inputs}.
type WorkflowSpec map[string]WorkflowNode

type WorkflowNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// WorkflowHandle identifies a submitted run.
type WorkflowHandle string

// PollResult is what poll(handle) returns.
type PollResult struct {
	Status       WorkflowStatus
	OutputFiles  []OutputFile // only populated when Status == done
	ErrorMessage string       // only populated when Status == error
}

// OutputFile names one node's output, fetched later via view().
type OutputFile struct {
	NodeID    string
	Filename  string
	Subfolder string
	Type      string // "output", "temp", etc.
}

// Workflow is the typed wrapper over the external node-graph image/video
// generation backend.
type Workflow struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

// NewWorkflow builds a Workflow adapter. pollInterval defaults to 2s.
func NewWorkflow(baseURL string, client *http.Client, pollInterval time.Duration) *Workflow {
	if client == nil {
		client = http.DefaultClient
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Workflow{baseURL: baseURL, client: client, pollInterval: pollInterval}
}

// Submit posts the DAG spec and returns a handle.
func (w *Workflow) Submit(ctx context.Context, spec WorkflowSpec) (WorkflowHandle, error) {
	var resp struct {
		PromptID string `json:"prompt_id"`
	}
	if err := postJSON(ctx, w.client, w.baseURL+"/prompt", map[string]any{"prompt": spec}, &resp, "workflow"); err != nil {
		return "", err
	}
	return WorkflowHandle(resp.PromptID), nil
}

// Poll reports the current status of a submitted run.
func (w *Workflow) Poll(ctx context.Context, handle WorkflowHandle) (PollResult, error) {
	var resp struct {
		Status  string       `json:"status"`
		Outputs []OutputFile `json:"outputs"`
		Error   string       `json:"error"`
	}
	if err := postJSON(ctx, w.client, w.baseURL+"/history/"+string(handle), nil, &resp, "workflow"); err != nil {
		return PollResult{}, err
	}
	return PollResult{Status: WorkflowStatus(resp.Status), OutputFiles: resp.Outputs, ErrorMessage: resp.Error}, nil
}

// FetchOutputs retrieves each output file's bytes (base64-encoded) via
// the view() accessor, deleting the engine's own copy afterward to bound
// disk usage.
func (w *Workflow) FetchOutputs(ctx context.Context, files []OutputFile) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		var resp struct {
			Base64 string `json:"base64"`
		}
		params := map[string]any{"filename": f.Filename, "subfolder": f.Subfolder, "type": f.Type}
		if err := postJSON(ctx, w.client, w.baseURL+"/view", params, &resp, "workflow"); err != nil {
			return nil, err
		}
		out = append(out, resp.Base64)
		_ = postJSON(ctx, w.client, w.baseURL+"/view/delete", params, nil, "workflow")
	}
	return out, nil
}

// Execute is submit + poll-until-terminal + fetch. A positive timeout
// bounds the whole run; timeout <= 0 leaves cancellation to ctx alone.
func (w *Workflow) Execute(ctx context.Context, spec WorkflowSpec, timeout time.Duration) ([]string, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	handle, err := w.Submit(runCtx, spec)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			return nil, errs.New(errs.AdapterTransient, "workflow.execute", "timed out waiting for run", runCtx.Err())
		case <-ticker.C:
			result, err := w.Poll(runCtx, handle)
			if err != nil {
				return nil, err
			}
			switch result.Status {
			case WorkflowDone:
				return w.FetchOutputs(runCtx, result.OutputFiles)
			case WorkflowError:
				return nil, errs.New(errs.AdapterFatal, "workflow.execute", result.ErrorMessage, nil)
			default:
				continue
			}
		}
	}
}
