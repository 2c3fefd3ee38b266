// Package adapter holds thin, typed, async wrappers around every external
// backend family: LLM chat, vision analysis, workflow-engine DAG
// submission, subprocess media tools, and plain HTTP download.
// Every adapter surfaces failures as *errs.Error so agents can convert
// them into a Result at their own boundary without inspecting raw
// backend-specific error types.
package adapter
