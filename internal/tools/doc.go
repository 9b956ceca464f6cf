// Package tools provides the per-turn toolset for the reasoning loop: web
// search, page fetch, site crawl, and knowledge retrieval. Router assembles
// the set for each turn; the retrieval tool is included only when the
// session has ingested documents, so the model never sees a tool it cannot
// usefully call.
//
// Every tool receives its arguments as the raw JSON string the model
// produced and parses its own input, tolerating a bare string where a model
// skips the JSON wrapper. Recoverable problems (bad input, nothing found)
// are returned as text for the model to read; only infrastructure failures
// surface as errors.
package tools
