package trade

import (
	"errors"
	"openc/db"
	"openc/market"
)

// Buy drives a Listed asset to Sold: it reads seller and price from the
// marketplace registry, pays the seller through the token ledger, then
// completes the purchase on the registry. Payment and delivery are not
// atomic; a delivery failure after payment surfaces as
// PaidButNotDeliveredError and is journaled for reconciliation.
func (t *Trader) Buy(assetID string) error {
	buyer := t.Account

	// Step 1: read the listing. NotListed and AlreadySold propagate
	// as clean aborts, no payment was sent yet.
	seller, err := t.Market.OriginalOwner(assetID)
	if err != nil {
		return err
	}
	if seller == buyer {
		return ErrOwnListing
	}

	price, err := t.Market.ListedPrice(assetID)
	if err != nil {
		return err
	}

	// Step 2: pay the seller.
	receipt, err := t.Ledger.Transfer(buyer, seller, price)
	if errors.Is(err, market.ErrUnknownOutcome) {
		// The ledger exposes no authoritative read, so the payment
		// outcome cannot be re-queried. Never retry here: a replay
		// could double-charge. Journal for manual reconciliation.
		t.journalIncident(&db.Incident{
			Kind:        db.IncidentPaidNotDelivered,
			AssetID:     assetID,
			Seller:      seller,
			Buyer:       buyer,
			Amount:      price,
			Unconfirmed: true,
		})

		return &PaidButNotDeliveredError{
			AssetID:     assetID,
			Buyer:       buyer,
			Seller:      seller,
			Amount:      price,
			Unconfirmed: true,
			Cause:       err,
		}
	}
	if err != nil {
		return err
	}

	t.notify(assetID)

	// Step 3: complete the purchase. Idempotent on the registry side,
	// so a bounded replay is safe.
	err = t.completeDelivery(assetID, seller, buyer)
	if err != nil {
		t.journalIncident(&db.Incident{
			Kind:    db.IncidentPaidNotDelivered,
			AssetID: assetID,
			Seller:  seller,
			Buyer:   buyer,
			Amount:  price,
			Receipt: receipt,
		})

		return &PaidButNotDeliveredError{
			AssetID:  assetID,
			Buyer:    buyer,
			Seller:   seller,
			Amount:   price,
			Receipt:  receipt,
			Attempts: t.retryBound(),
			Cause:    err,
		}
	}

	t.notify(assetID)

	return nil
}

// completeDelivery retries completePurchase a bounded number of times.
// The registry call is the linearization point for racing buyers: it
// rejects with AlreadySold when another buyer won.
func (t *Trader) completeDelivery(assetID, seller, buyer string) error {
	var err error

	for attempt := 1; attempt <= t.retryBound(); attempt++ {
		err = t.Market.CompletePurchase(assetID, seller, buyer)
		if err == nil {
			return nil
		}

		if errors.Is(err, market.ErrAlreadySold) {
			// Either an earlier attempt of ours landed, or another
			// buyer won the race. The asset owner tells them apart.
			owner, qerr := t.Assets.Owner(assetID)
			if qerr == nil && owner == buyer {
				return nil
			}
			return err
		}

		if errors.Is(err, market.ErrUnknownOutcome) {
			// Re-query before retrying: the call may have landed.
			listed, qerr := t.Market.IsListed(assetID)
			if qerr == nil && !listed {
				owner, qerr2 := t.Assets.Owner(assetID)
				if qerr2 == nil && owner == buyer {
					return nil
				}
			}
		} else if !errors.Is(err, market.ErrUnavailable) {
			return err
		}

		if attempt < t.retryBound() {
			backoff(attempt)
		}
	}

	return err
}
