package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Configuration errors
// 12000-12999: Workspace & Source errors
// 13000-13999: Build & Execution errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError ErrorCode = 10001
	InvalidParams ErrorCode = 10002
	NotFound      ErrorCode = 10003
	Timeout       ErrorCode = 10004
	Cancelled     ErrorCode = 10005

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Configuration Errors (11000-11999) ==========

	ConfigLoadFailed     ErrorCode = 11000
	ConfigInvalid        ErrorCode = 11001
	LanguageNotSupported ErrorCode = 11002
	UnknownTestMode      ErrorCode = 11003

	// ========== Workspace & Source Errors (12000-12999) ==========

	WorkspaceCreateFailed ErrorCode = 12000
	SourceNotFound        ErrorCode = 12001
	SourceReadFailed      ErrorCode = 12002
	InputWriteFailed      ErrorCode = 12003
	OutputWriteFailed     ErrorCode = 12004
	RoleMissing           ErrorCode = 12005

	// ========== Build & Execution Errors (13000-13999) ==========

	// Build (13000-13099)
	BuildFailed          ErrorCode = 13000
	CompilerNotFound     ErrorCode = 13001
	ArtifactMissing      ErrorCode = 13002
	CommandTemplateError ErrorCode = 13003

	// Execution (13100-13199)
	SpawnFailed          ErrorCode = 13100
	ExecutionSystemError ErrorCode = 13101
	GeneratorFailed      ErrorCode = 13102
	ReferenceFailed      ErrorCode = 13103
	ValidatorMalfunction ErrorCode = 13104
	RunNotIdle           ErrorCode = 13105
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:       "Success",
	InternalError: "Internal error",
	InvalidParams: "Invalid parameters",
	NotFound:      "Resource not found",
	Timeout:       "Operation timed out",
	Cancelled:     "Operation cancelled",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Configuration
	ConfigLoadFailed:     "Failed to load configuration",
	ConfigInvalid:        "Configuration is invalid",
	LanguageNotSupported: "Language is not supported",
	UnknownTestMode:      "Unknown test mode",

	// Workspace & Source
	WorkspaceCreateFailed: "Failed to create workspace directory",
	SourceNotFound:        "Source file not found",
	SourceReadFailed:      "Failed to read source file",
	InputWriteFailed:      "Failed to write test input file",
	OutputWriteFailed:     "Failed to write test output file",
	RoleMissing:           "Required source role is missing",

	// Build
	BuildFailed:          "Build failed",
	CompilerNotFound:     "Compiler not found in PATH",
	ArtifactMissing:      "Build artifact is missing",
	CommandTemplateError: "Command template expansion failed",

	// Execution
	SpawnFailed:          "Failed to start subprocess",
	ExecutionSystemError: "Execution system error",
	GeneratorFailed:      "Test input generator failed",
	ReferenceFailed:      "Reference solution failed",
	ValidatorMalfunction: "Validator malfunctioned",
	RunNotIdle:           "A test run is already in progress",
}

// Message returns the default message for an error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}
