// Package emoji provides symbol constants for CLI output.
package emoji

// Symbols used for status lines and table cells.
const (
	// Success marks a completed operation.
	Success = "✓"

	// Stop marks a shutdown in progress.
	Stop = "■"

	// Warning marks a partial result, such as a query the backend could not answer.
	Warning = "!"

	// Match marks a candidate flagged as a certain match.
	Match = "✓"

	// Listening marks a server ready for connections.
	Listening = "→"
)
