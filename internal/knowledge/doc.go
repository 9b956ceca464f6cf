// Package knowledge implements per-session document memory: ingestion of
// uploaded files into embedded chunks, vector similarity search over them,
// and retrieval formatting for the reasoning loop.
//
// Each session owns an isolated namespace keyed by session ID. Ingestion is
// additive: uploading a second document extends the namespace rather than
// replacing it. Clearing a session drops the whole namespace.
package knowledge
