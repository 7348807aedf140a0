package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Config (E100-E119)
	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No retain.json was found in the given directory or any of its parents.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "retain.json is not valid JSON.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A value in retain.json is out of range or malformed.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Could not write config file",
	},

	// Server (E200-E219)
	"E200": {
		Category: CategoryServer,
		Message:  "Could not start server",
		Detail:   "The HTTP listener could not be started on the configured address.",
	},
	"E201": {
		Category: CategoryServer,
		Message:  "Shutdown timed out",
		Detail:   "Live sessions did not finish before the shutdown deadline.",
	},

	// Protocol (E300-E319)
	"E300": {
		Category: CategoryProtocol,
		Message:  "Malformed host frame",
		Detail:   "A frame read from the host could not be decoded.",
	},

	// Runtime (E400-E419)
	"E400": {
		Category: CategoryRuntime,
		Message:  "Program stopped with an error",
		Detail:   "A subscription source or binding failed and the runtime shut down.",
	},

	// Render (E500-E519)
	"E500": {
		Category: CategoryRender,
		Message:  "Render failed",
		Detail:   "The view contains a node that cannot be serialized to HTML.",
	},
	"E501": {
		Category: CategoryRender,
		Message:  "Could not write output",
	},

	// Publish (E600-E619)
	"E600": {
		Category: CategoryPublish,
		Message:  "No bucket configured",
		Detail:   "Publishing needs a destination bucket, set in retain.json or with --bucket.",
	},
	"E601": {
		Category: CategoryPublish,
		Message:  "Upload failed",
		Detail:   "The object store rejected the snapshot upload.",
	},

	// CLI (E700-E719)
	"E700": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
