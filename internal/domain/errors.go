package domain

import "errors"

// Errors
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderItemNotFound     = errors.New("order item not found")
	ErrInventoryUnitNotFound = errors.New("inventory unit not found")
	ErrTaskNotFound          = errors.New("work task not found")
	ErrTaskItemNotFound      = errors.New("task item not found")
	ErrBinNotFound           = errors.New("pick bin not found")
	ErrBinItemNotFound       = errors.New("no bin item matches the scanned barcode")
	ErrEventNotFound         = errors.New("event not found")

	ErrInvalidStatus         = errors.New("invalid status for this operation")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrItemAlreadyCompleted  = errors.New("task item already completed")
	ErrWrongTaskType         = errors.New("operation applied to wrong task type")
	ErrDuplicateActiveTask   = errors.New("an active task of this type already exists for the order")
	ErrBinAlreadyOpen        = errors.New("an open pick bin already exists for the order")
	ErrBinNotVerified        = errors.New("pick bin is not fully verified")
	ErrMissingWeight         = errors.New("packed weight is required")
	ErrNoCompletedPicks      = errors.New("invalid pack request: no completed pick items")
)
