// Package remote implements [source.Backend] against a running terdel HTTP
// API, so diagrams can be built from a database the caller cannot reach
// directly.
//
// The client speaks the API's JSON shapes:
//
//	GET  /table-names              {"table_names": [...]}
//	GET  /table-schema/{table}     {"table_schema": [...]}
//	GET  /constraints              {"constraints": [...]}
//	GET  /version                  {"version": "..."}
//	GET  /table-data/{table}       {"data": [...]}
//	POST /table-data/{table}       {"message": "...", "row": {...}}
//
// Connection failures and 5xx responses are retried with exponential backoff
// (see [httputil.Retry]). Error envelopes returned by the server are decoded
// back into [errors.Error] values carrying the server's code, so a missing
// table still reports TABLE_NOT_FOUND on the client side.
package remote
