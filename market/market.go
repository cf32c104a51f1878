package market

import "errors"

// Listing pairs an asset with a sale price.
// Seller is the owner at listing time, the registry keeps
// listings keyed by asset id, one listing per asset at most.
type Listing struct {
	AssetID string
	Seller  string
	Price   uint64
	Status  Status
}

// Status is the sale state of an asset.
type Status uint8

// Sale states. The two Inconsistent states are administrative only:
// they are entered when a workflow step failed after an earlier step
// already took effect on a remote registry.
const (
	Unlisted Status = iota
	Listed
	Sold
	// InconsistentListed marks a listing whose ownership transfer
	// to the marketplace account failed.
	InconsistentListed
	// InconsistentPaid marks a purchase whose payment went through
	// but whose delivery did not.
	InconsistentPaid
)

func (s Status) String() string {
	switch s {
	case Unlisted:
		return ""
	case Listed:
		return "Listed"
	case Sold:
		return "Sold"
	case InconsistentListed:
		return "Pending (listing)"
	case InconsistentPaid:
		return "Pending (purchase)"
	default:
		return "Unknown"
	}
}

// Remote failure kinds, as classified by the rpc client wrappers.
// The wrappers never retry on their own; retry and compensation
// decisions belong to the workflow layer.
var (
	// ErrAlreadyListed is returned when a listing for the asset already exists.
	ErrAlreadyListed = errors.New("asset is already listed")

	// ErrNotListed is returned when no listing exists for the asset.
	ErrNotListed = errors.New("asset is not listed")

	// ErrAlreadySold is returned when the listing was completed by another buyer.
	ErrAlreadySold = errors.New("listing is already sold")

	// ErrInsufficientFunds is returned by the token ledger
	// when the payer balance cannot cover the transfer.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrUnavailable is returned when no server of a service pool
	// produced a response. The call had no remote effect.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUnknownOutcome is returned when a call timed out before its
	// effect was confirmed. The effect may or may not have happened;
	// callers must re-query authoritative state before retrying.
	ErrUnknownOutcome = errors.New("call outcome unknown")
)
