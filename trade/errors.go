package trade

import (
	"errors"
	"fmt"
)

// Precondition failures. No remote call was made.
var (
	// ErrInvalidPrice is returned when listing with a zero price.
	ErrInvalidPrice = errors.New("price must be greater than zero")

	// ErrNotOwner is returned when listing an asset the caller does not own.
	ErrNotOwner = errors.New("caller does not own the asset")

	// ErrOwnListing is returned when buying an asset the caller listed.
	ErrOwnListing = errors.New("cannot buy own listing")

	// ErrManualReconcile marks incidents no automatic replay can fix.
	ErrManualReconcile = errors.New("incident requires manual reconciliation")
)

// TransferFailedAfterListingError reports that a listing was created but
// the ownership transfer to the marketplace account failed even after
// retries. The listing is not undone; the incident journal carries the
// state for administrative reconciliation.
type TransferFailedAfterListingError struct {
	AssetID  string
	Seller   string
	Price    uint64
	Attempts int
	Cause    error
}

func (e *TransferFailedAfterListingError) Error() string {
	return fmt.Sprintf("asset %s listed but ownership transfer failed after %d attempts: %v",
		e.AssetID, e.Attempts, e.Cause)
}

func (e *TransferFailedAfterListingError) Unwrap() error {
	return e.Cause
}

// PaidButNotDeliveredError reports that the buyer's payment went through
// (or, if Unconfirmed, may have gone through) but the purchase was not
// completed. It carries the transfer receipt so the payment can be
// located during reconciliation.
type PaidButNotDeliveredError struct {
	AssetID string
	Buyer   string
	Seller  string
	Amount  uint64
	Receipt string

	// Unconfirmed means the payment outcome itself is unknown
	// (the transfer call timed out before confirmation).
	Unconfirmed bool

	Attempts int
	Cause    error
}

func (e *PaidButNotDeliveredError) Error() string {
	if e.Unconfirmed {
		return fmt.Sprintf("payment of %d from %s to %s for asset %s has unknown outcome: %v",
			e.Amount, e.Buyer, e.Seller, e.AssetID, e.Cause)
	}
	return fmt.Sprintf("paid %d for asset %s (receipt %s) but delivery failed after %d attempts: %v",
		e.Amount, e.AssetID, e.Receipt, e.Attempts, e.Cause)
}

func (e *PaidButNotDeliveredError) Unwrap() error {
	return e.Cause
}
