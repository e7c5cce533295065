// Package server holds the HTTP server configuration.
//
// The start command reads the listen address, body limit and shutdown budget
// from Config; the API key is handed to the auth middleware.
package server
