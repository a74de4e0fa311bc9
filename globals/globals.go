package globals

// Context keys
type ContextKey string

const ClaimsKey ContextKey = "claims"
const RequestIDKey ContextKey = "requestId"

// Redis channel carrying order lifecycle events.
const OrderEventsChannel = "order-events"
