package main

// Exit codes shared by all commands
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad env or config file)
	ExitDataError   = 3 // Data error (unreadable PDF, no text layer, no citations)
	ExitAPIError    = 4 // Upstream API error (rate limit, network)
)
