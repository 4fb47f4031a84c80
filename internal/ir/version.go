package ir

// Version constants for the stream format and the tool.
const (
	// StreamVersion is the compiled-type stream schema version.
	StreamVersion = "1"

	// ToolVersion is the bridgepass version.
	ToolVersion = "0.1.0"
)
