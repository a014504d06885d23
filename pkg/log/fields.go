package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor, also used as gin context keys by pkg/middleware
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Realtime
	FieldConnID    = "conn_id"
	FieldRoomID    = "room_id"
	FieldEvent     = "event"
	FieldTargetID  = "target_user_id"
	FieldAttempted = "attempted"
	FieldFailed    = "failed"

	// Service
	FieldService    = "service"
	FieldInstanceID = "instance_id"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
