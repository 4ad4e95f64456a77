package workflows

// ErrTypeInvalidOrderState is the application error type activities use
// when an order cannot legally take the requested transition. Retrying
// such a failure would replay the same rejection.
const ErrTypeInvalidOrderState = "InvalidOrderState"
