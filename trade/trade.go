package trade

import (
	"fmt"
	"math/rand"
	"openc/db"
	"openc/log"
	"openc/mail"
	"time"
)

// AssetRegistry is the asset registry port used by the workflows.
type AssetRegistry interface {
	Owner(assetID string) (string, error)
	TransferOwnership(assetID, newOwner string) error
	Mint(name string, image []byte) (string, error)
}

// MarketRegistry is the marketplace registry port used by the workflows.
type MarketRegistry interface {
	CreateListing(assetID, seller string, price uint64) error
	IsListed(assetID string) (bool, error)
	OriginalOwner(assetID string) (string, error)
	ListedPrice(assetID string) (uint64, error)
	CompletePurchase(assetID, seller, buyer string) error
	MarketplaceAccount() (string, error)
}

// TokenLedger is the token ledger port used by the purchase workflow.
type TokenLedger interface {
	Transfer(from, to string, amount uint64) (string, error)
}

// Journal records partial-effect incidents for reconciliation.
type Journal interface {
	Record(inc *db.Incident) error
}

// Trader runs the listing and purchase workflows for one user.
// Workflows never interleave on the same asset within one client;
// each call runs its remote steps strictly in order.
type Trader struct {
	Assets AssetRegistry
	Market MarketRegistry
	Ledger TokenLedger

	Journal Journal

	// Account is the current user account id.
	Account string

	// Marketplace overrides the registry-reported marketplace account.
	Marketplace string

	// StepRetry bounds in-line retries of a partial-effect step.
	// Zero means the default of 3.
	StepRetry int

	// OnChange is called after every step that changed remote state,
	// so the projector can re-render the asset.
	OnChange func(assetID string)

	// OnIncident is called after a partial-effect incident is
	// journaled, so the projector can pin the administrative state.
	OnIncident func(inc *db.Incident)
}

func (t *Trader) retryBound() int {
	if t.StepRetry > 0 {
		return t.StepRetry
	}
	return 3
}

func (t *Trader) notify(assetID string) {
	if t.OnChange != nil {
		t.OnChange(assetID)
	}
}

func (t *Trader) marketplaceAccount() (string, error) {
	if t.Marketplace != "" {
		return t.Marketplace, nil
	}
	return t.Market.MarketplaceAccount()
}

// journalIncident records a partial-effect incident and alerts the
// configured receivers. Journal failures are logged, never propagated:
// the caller already carries the workflow error.
func (t *Trader) journalIncident(inc *db.Incident) {
	log.Error.Printf("Inconsistency detected: kind=%s asset=%s seller=%s buyer=%s amount=%d\n",
		inc.Kind, inc.AssetID, inc.Seller, inc.Buyer, inc.Amount)

	if t.Journal != nil {
		if err := t.Journal.Record(inc); err != nil {
			log.Error.Printf("Failed to journal incident for asset %s: %v\n", inc.AssetID, err)
		}
	}

	mail.SendNotify(
		fmt.Sprintf("Inconsistency Detected: %s", inc.Kind),
		fmt.Sprintf("asset=%s\nseller=%s\nbuyer=%s\namount=%d\nreceipt=%s\nunconfirmed=%v\n",
			inc.AssetID, inc.Seller, inc.Buyer, inc.Amount, inc.Receipt, inc.Unconfirmed),
	)

	if t.OnIncident != nil {
		t.OnIncident(inc)
	}
}

// backoff sleeps before the next retry of a failed step.
func backoff(retryTime int) {
	delay := rand.Intn(100*(1<<uint(retryTime))) + 50
	if delay > 3000 {
		delay = 3000
	}

	time.Sleep(time.Duration(delay) * time.Millisecond)
}
