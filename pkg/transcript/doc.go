// Package transcript persists conversations as append-only JSONL files,
// one file per conversation, with a metadata header line. Appends are
// serialized per conversation and fsynced, so a successful call commits
// its turns durably and exactly once.
package transcript
