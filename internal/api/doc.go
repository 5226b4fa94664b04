// Package api exposes the HTTP surface of the service: case-file uploads,
// the two-step article search/analyze workflow, stored alerts, the legal
// chat assistant and the document analyser, all JSON under bearer-protected
// /api/v1 routes.
//
// Handlers depend on narrow service interfaces so they can be tested with
// fakes. NewServer assembles the middleware chain (recovery, request IDs,
// logging, CORS, per-IP rate limiting, token auth) and keeps the health
// probes outside it.
package api
