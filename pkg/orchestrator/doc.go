// Package orchestrator executes logical calls against a generative-AI
// provider with bounded retries and credential rotation. One logical call
// may span several attempts across different keys, but commits at most one
// user turn and one model turn to the conversation transcript.
package orchestrator
