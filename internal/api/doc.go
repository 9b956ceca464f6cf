// Package api exposes the chat service over HTTP.
//
// Endpoints:
//   - POST /llm_chat/chat             - text turn (JSON)
//   - POST /llm_chat/chat_with_image  - turn with image upload (multipart)
//   - POST /llm_chat/chat_with_file   - turn with document upload (multipart)
//   - POST /llm_chat/clear            - forget a session
//   - GET  /llm_chat/health           - dependency health
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - chat.go: chat and upload endpoints
//   - health.go: health endpoint
//   - response.go: JSON response helpers
package api
