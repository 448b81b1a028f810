package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldUserID      = "user_id"
	FieldAccountMode = "account_mode"
	FieldKind        = "kind"
	FieldTxID        = "transaction_id"
	FieldStatusCode  = "status_code"
	FieldErrorCode   = "error_code"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldMonth       = "month"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentSummary = "summary"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpMonthly   = "monthly_summary"
	OpYearly    = "yearly_summary"
	OpBalance   = "running_balance"
	OpDashboard = "dashboard"
	OpSnapshot  = "snapshot"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithPeriod adds year and, when non-zero, month.
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	if month != 0 {
		f[FieldMonth] = month
	}
	return f
}

// WithLedger adds the owner and ledger coordinates of a request.
func (f LogFields) WithLedger(userID, mode, kind string) LogFields {
	f[FieldUserID] = userID
	if mode != "" {
		f[FieldAccountMode] = mode
	}
	if kind != "" {
		f[FieldKind] = kind
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
