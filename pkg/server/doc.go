// Package server exposes a database schema over HTTP.
//
// The API serves both the raw catalog (for the browser schema editor) and
// rendered diagrams:
//
//	GET  /health                   {"status": "ok"}
//	GET  /version                  {"version": "PostgreSQL ..."}
//	GET  /table-names              {"table_names": [...]}
//	GET  /table-schema/{table}     {"table_schema": [...]}
//	GET  /constraints              {"constraints": [...]}
//	GET  /table-data/{table}       {"data": [...]}          ?limit=N
//	POST /table-data/{table}       {"message": "...", "row": {...}}
//	GET  /diagram                  diagram JSON             ?refresh=true
//	GET  /diagram.svg              rendered SVG             ?detailed=true
//	GET  /diagram.dot              Graphviz DOT
//	GET  /diagram.mmd              Mermaid erDiagram
//
// Failures use one JSON envelope whose HTTP status is derived from the
// error code (see [errors.HTTPStatus]):
//
//	{"status": "error", "message": "table \"ghost\" not found", "error": "TABLE_NOT_FOUND"}
//
// A failed insert additionally carries the driver's diagnostic in
// "details".
//
// Every response has an X-Request-Id header; requests are logged through
// the server's charmbracelet/log logger with that id.
package server
