package main

// Exit codes
const (
	ExitSuccess        = 0 // Success
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Configuration error (missing endpoint, project or config file)
	ExitDataError      = 3 // Data error (malformed input, validation failure)
	ExitNotFound       = 4 // Paper or citation key not found
	ExitServiceFailure = 5 // Scoring service unavailable or returned an error
)
