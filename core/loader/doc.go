// Package loader provides the feature loading system.
//
// Each feature implements Feature and mounts its own routes. The start
// command registers features on a Manager and calls LoadAll once the global
// middleware is in place.
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
package loader
