package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrFetch              = fmt.Errorf("fetch failed")
	ErrSave               = fmt.Errorf("save failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrProjectNotFound    = fmt.Errorf("project not found")
	ErrDraftNotFound      = fmt.Errorf("draft not found")

	// Workspace errors
	ErrFrameOutOfRange = fmt.Errorf("frame index out of range")
	ErrSuperseded      = fmt.Errorf("navigation superseded")
	ErrExportFailed    = fmt.Errorf("export failed")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
