// Package logging builds the zerolog loggers used across a pass.
package logging
