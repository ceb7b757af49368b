package constants

// 支付状态常量
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusReversed   = "reversed"
)

// 支付类型常量
const (
	PaymentTypeStandard  = "standard"
	PaymentTypeInstant   = "instant"
	PaymentTypeBiometric = "biometric"
	PaymentTypeQRCode    = "qr_code"
)

// 欺诈类型常量
const (
	FraudTypeBlacklist        = "blacklist"
	FraudTypeSuspiciousAmount = "suspicious_amount"
)

// 欺诈处置动作常量
const (
	FraudActionBlocked = "blocked"
)

// 生命周期事件常量
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentReversed  = "payment.reversed"
	EventFraudDetected    = "fraud.detected"
)

// 验证方式常量
const (
	ProofMethodQRCode = "qr_code"
)

// 撤销原因常量
const (
	ReversalReasonCustomerRequest = "CUSTOMER_REQUEST"
	ReversalReasonDuplicate       = "DUPLICATE_PAYMENT"
	ReversalReasonOperationError  = "OPERATION_ERROR"
)

// 队列常量
const (
	QueueDefault         = "default"
	QueueCritical        = "critical"
	TaskPaymentCompleted = "payment:completed"
	TaskPaymentReversed  = "payment:reversed"
	TaskFraudDetected    = "fraud:detected"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "pgn"
)

// 黑名单集合键常量
const (
	BlacklistCacheKey = "fraud:blacklist"
)
