package trade

import (
	"fmt"
	"openc/db"
)

// Reconcile replays the failed step of an open incident. Only the
// failed step is replayed, never the whole workflow: the replayed calls
// are idempotent on the registry side, the preceding steps are not.
func (t *Trader) Reconcile(inc *db.Incident) error {
	switch inc.Kind {
	case db.IncidentTransferFailed:
		marketplace, err := t.marketplaceAccount()
		if err != nil {
			return err
		}
		return t.transferToMarketplace(inc.AssetID, marketplace)

	case db.IncidentPaidNotDelivered:
		if inc.Unconfirmed {
			// The payment outcome is unknown; completing the purchase
			// could hand over the asset without payment.
			return ErrManualReconcile
		}
		return t.completeDelivery(inc.AssetID, inc.Seller, inc.Buyer)

	default:
		return fmt.Errorf("unknown incident kind: %s", inc.Kind)
	}
}
