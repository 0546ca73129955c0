package ir

// Version constants for the IR schema and the library.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// LibraryVersion is the embedsave version recorded in the journal.
	LibraryVersion = "0.1.0"
)
