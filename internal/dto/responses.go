package dto

// Distinguished error codes surfaced in the error envelope.
const (
	CodeBootstrapNotHome      = "BOOTSTRAP_NOT_HOME"
	CodeCanaryGated           = "CANARY_GATED"
	CodeWriteStorm            = "WRITE_STORM"
	CodeWritesDisabled        = "WRITES_DISABLED"
	CodeCheckinDisabled       = "CHECKIN_DISABLED"
	CodeQuickDisabled         = "QUICK_DISABLED"
	CodeResetDisabled         = "RESET_DISABLED"
	CodeInvalidCheckin        = "INVALID_CHECKIN"
	CodeInvalidQuick          = "INVALID_QUICK"
	CodeInvalidFeedback       = "INVALID_FEEDBACK"
	CodeIdempotencyConflict   = "IDEMPOTENCY_CONFLICT"
	CodeNoResetCandidate      = "NO_RESET_CANDIDATE"
	CodeTodayContractInvalid  = "TODAY_CONTRACT_INVALID"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInternal              = "INTERNAL"
)

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse is the uniform failure envelope: {ok:false, error:{...}}.
type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error ErrorBody `json:"error"`
}

func NewError(code, message, requestID string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: code, Message: message, RequestID: requestID}}
}
