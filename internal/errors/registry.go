package errors

// Registered error codes.
const (
	CodeInvalidFieldValue = "S001"
	CodeInvalidFieldName  = "S002"
	CodeDerivation        = "S003"
	CodeSynchronizerRead  = "S004"
	CodeSynchronizerWrite = "S005"
	CodeUnknownField      = "S006"
	CodeReadOnlyField     = "S007"
	CodeConfigNotFound    = "S101"
	CodeConfigParse       = "S102"
	CodeConfigInvalid     = "S103"
	CodeConfigUnsupported = "S104"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Store Errors (S001-S099)
	// ============================================

	CodeInvalidFieldValue: {
		Category: CategoryConstruction,
		Message:  "Invalid field value",
		Detail:   "A literal field was declared with a function value. Functions are only accepted as derivations of computed fields.",
		DocURL:   "https://stan.vango.dev/docs/errors/S001",
	},
	CodeInvalidFieldName: {
		Category: CategoryConstruction,
		Message:  "Invalid field name",
		Detail:   "Field names must be non-empty and unique within a store.",
		DocURL:   "https://stan.vango.dev/docs/errors/S002",
	},
	CodeDerivation: {
		Category: CategoryDerivation,
		Message:  "Derivation failed",
		Detail:   "A computed field's derivation panicked or read itself through a cycle.",
		DocURL:   "https://stan.vango.dev/docs/errors/S003",
	},
	CodeSynchronizerRead: {
		Category: CategorySynchronizer,
		Message:  "Synchronizer read failed",
		Detail:   "The field fell back to its declared initial value and the value was pushed back to the synchronizer.",
		DocURL:   "https://stan.vango.dev/docs/errors/S004",
	},
	CodeSynchronizerWrite: {
		Category: CategorySynchronizer,
		Message:  "Synchronizer update failed",
		Detail:   "The committed value stays in the store but was not persisted by the synchronizer.",
		DocURL:   "https://stan.vango.dev/docs/errors/S005",
	},
	CodeUnknownField: {
		Category: CategoryAccess,
		Message:  "Unknown field",
		Detail:   "The store has no field with this name.",
		DocURL:   "https://stan.vango.dev/docs/errors/S006",
	},
	CodeReadOnlyField: {
		Category: CategoryAccess,
		Message:  "Field is read-only",
		Detail:   "Computed fields are derived from other fields and have no action.",
		DocURL:   "https://stan.vango.dev/docs/errors/S007",
	},

	// ============================================
	// Config Errors (S101-S199)
	// ============================================

	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No stan.toml or stan.json was found.",
		DocURL:   "https://stan.vango.dev/docs/errors/S101",
	},
	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   "https://stan.vango.dev/docs/errors/S102",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://stan.vango.dev/docs/errors/S103",
	},
	CodeConfigUnsupported: {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .toml or .json.",
		DocURL:   "https://stan.vango.dev/docs/errors/S104",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
