package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUsername    = "username"
	FieldSpaceID     = "space_id"
	FieldExpenseID   = "expense_id"
	FieldCategoryID  = "category_id"
	FieldExpenseCost = "expense_cost"
	FieldCount       = "count"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentAPI       = "api"
	ComponentCache     = "cache"
	ComponentWorkspace = "workspace"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
)

// Fields provides a builder for structured log fields. Keys keep insertion
// order so log lines read the same every time.
type Fields struct {
	kv []any
}

// NewFields creates an empty field set
func NewFields() *Fields {
	return &Fields{}
}

func (f *Fields) add(k string, v any) *Fields {
	f.kv = append(f.kv, k, v)
	return f
}

func (f *Fields) WithOperation(op string) *Fields { return f.add(FieldOperation, op) }
func (f *Fields) WithRequestID(id string) *Fields { return f.add(FieldRequestID, id) }
func (f *Fields) WithSpace(id string) *Fields { return f.add(FieldSpaceID, id) }
func (f *Fields) WithExpense(id string) *Fields { return f.add(FieldExpenseID, id) }
func (f *Fields) WithCategory(id string) *Fields { return f.add(FieldCategoryID, id) }
func (f *Fields) WithUsername(name string) *Fields { return f.add(FieldUsername, name) }
func (f *Fields) WithCount(n int) *Fields { return f.add(FieldCount, n) }
func (f *Fields) With(k string, v any) *Fields { return f.add(k, v) }

// WithError adds the error field when err is non-nil
func (f *Fields) WithError(err error) *Fields {
	if err != nil {
		f.add(FieldError, err.Error())
	}
	return f
}

// WithHTTP adds request and response fields
func (f *Fields) WithHTTP(method, path string, status int, durationMs int64) *Fields {
	return f.add(FieldMethod, method).
		add(FieldPath, path).
		add(FieldStatusCode, status).
		add(FieldDuration, durationMs).
		add(FieldSuccess, status > 0 && status < 400)
}

// ToSlice converts the fields to slog arguments
func (f *Fields) ToSlice() []any {
	return append([]any(nil), f.kv...)
}
