// Package catalog stores named agent configurations: a SQLite index of
// saved agents plus a snapshot of each agent's conversation transcript,
// so a saved agent can be replayed as reference context later.
package catalog
