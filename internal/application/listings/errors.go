package listings

import "errors"

var (
	ErrInsufficientStock    = errors.New("Insufficient stock for purchase")
	ErrListingCreateFailed  = errors.New("Unable to create listing")
	ErrPurchaseRecordFailed = errors.New("Unable to record purchase")
	ErrStoreUnavailable     = errors.New("Listing store unavailable")
	ErrListingNotFound      = errors.New("Listing not found")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrSelfPurchase         = errors.New("You cannot purchase your own listing")
)
