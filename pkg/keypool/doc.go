// Package keypool manages a shared pool of provider API keys: round-robin
// rotation, failure tracking, daily recovery of failed keys, and health
// reporting. A single Pool instance is shared by every concurrent caller.
package keypool
