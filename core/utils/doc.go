// Package utils provides loose type conversion helpers.
// Conflict values are stored as JSON and come back as float64, string or int
// depending on the path, so comparisons and writes go through these helpers.
package utils
