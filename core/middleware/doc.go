// Package middleware groups the HTTP middleware of the service.
//
//   - auth: API key validation for the catalog endpoints.
//   - rayid: per-request id stored in locals and echoed as X-Ray-ID.
package middleware
