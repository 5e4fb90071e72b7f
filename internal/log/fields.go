package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldSessionID     = "session_id"
	FieldIntent        = "intent"
	FieldTxType        = "tx_type"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldGoalID        = "goal_id"
	FieldEventKind     = "event_kind"
)

// Components defines standard component names
const (
	ComponentHTTP      = "http"
	ComponentChat      = "chat"
	ComponentLedger    = "ledger"
	ComponentAssistant = "assistant"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentTelegram  = "telegram"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentSecurity  = "security"
)

// Operations defines standard operation names
const (
	OpPersist = "persist"
	OpLoad    = "load"
)
