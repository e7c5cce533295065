// Package logger provides a structured logging facility based on Zap.
//
// Debug level selects zap's development preset; anything else uses the
// production preset. Format "console" switches to the colored console encoder.
//
// Request handlers attach the ray id set by the rayid middleware with
// WithRayID so every entry of a request can be correlated.
//
//	log, _ := logger.New(&cfg.Log)
//	l := logger.WithRayID(log, c)
//	l.Warn("room skipped", zap.String("source", source))
package logger
