// Package chat orchestrates a conversation turn: load the session history,
// route the toolset, run the reasoning loop, and commit the updated history.
// Upload variants prepend a vision description or ingest a document before
// the turn runs.
package chat
