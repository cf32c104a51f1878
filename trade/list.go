package trade

import (
	"errors"
	"openc/db"
	"openc/market"
)

// List drives an asset from Unlisted to Listed: it creates a listing on
// the marketplace registry, then transfers ownership of the asset to the
// marketplace account. The two calls are not atomic; if the transfer
// fails after the listing was created, the listing is NOT undone and the
// failure surfaces as TransferFailedAfterListingError.
func (t *Trader) List(assetID string, price uint64) error {
	seller := t.Account

	if price == 0 {
		return ErrInvalidPrice
	}

	owner, err := t.Assets.Owner(assetID)
	if err != nil {
		return err
	}
	if owner != seller {
		return ErrNotOwner
	}

	// Step 1: create the listing. A failure here is a clean abort,
	// nothing changed remotely.
	err = t.Market.CreateListing(assetID, seller, price)
	if errors.Is(err, market.ErrUnknownOutcome) {
		// The call timed out. Re-query before deciding: if the listing
		// exists, the call landed and the workflow proceeds. If the
		// re-query itself fails the outcome stays unknown; reporting
		// a clean abort here could hide a landed listing.
		listed, qerr := t.Market.IsListed(assetID)
		if qerr != nil {
			return market.ErrUnknownOutcome
		}
		if !listed {
			return market.ErrUnavailable
		}
		err = nil
	}
	if err != nil {
		return err
	}

	t.notify(assetID)

	// Step 2: hand the asset to the marketplace account.
	marketplace, err := t.marketplaceAccount()
	if err == nil {
		err = t.transferToMarketplace(assetID, marketplace)
	}

	if err != nil {
		t.journalIncident(&db.Incident{
			Kind:    db.IncidentTransferFailed,
			AssetID: assetID,
			Seller:  seller,
			Amount:  price,
		})

		return &TransferFailedAfterListingError{
			AssetID:  assetID,
			Seller:   seller,
			Price:    price,
			Attempts: t.retryBound(),
			Cause:    err,
		}
	}

	t.notify(assetID)

	return nil
}

// transferToMarketplace retries the ownership transfer a bounded number
// of times. Transferring to an account that already owns the asset is a
// registry-side no-op, so replaying is safe.
func (t *Trader) transferToMarketplace(assetID, marketplace string) error {
	var err error

	for attempt := 1; attempt <= t.retryBound(); attempt++ {
		err = t.Assets.TransferOwnership(assetID, marketplace)
		if err == nil {
			return nil
		}

		if errors.Is(err, market.ErrUnknownOutcome) {
			owner, qerr := t.Assets.Owner(assetID)
			if qerr == nil && owner == marketplace {
				return nil
			}
		} else if !errors.Is(err, market.ErrUnavailable) {
			// Deterministic registry rejection, retrying cannot help.
			return err
		}

		if attempt < t.retryBound() {
			backoff(attempt)
		}
	}

	return err
}
