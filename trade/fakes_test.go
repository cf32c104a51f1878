package trade

import (
	"fmt"
	"openc/db"
	"openc/market"
	"sync"
)

// fakeWorld implements the three registry ports over shared in-memory
// state, with per-call failure injection. Both sides of a trade share
// one world, so cross-client races can be exercised.
type fakeWorld struct {
	mu sync.Mutex

	owners   map[string]string
	listings map[string]*fakeListing
	balances map[string]uint64

	// transfers counts ownership changes per asset.
	transfers map[string]int

	mintSeq    int
	receiptSeq int

	// Failure injection.
	failTransferOwnership error
	failLedgerTransfer    error
	failComplete          error
	failCompleteCount     int
	failIsListed          error
	timeoutCreateListing  bool

	completeCalls int
}

type fakeListing struct {
	seller string
	price  uint64
	sold   bool
	buyer  string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		owners:    make(map[string]string),
		listings:  make(map[string]*fakeListing),
		balances:  make(map[string]uint64),
		transfers: make(map[string]int),
	}
}

func (w *fakeWorld) Owner(assetID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	owner, ok := w.owners[assetID]
	if !ok {
		return "", fmt.Errorf("unknown asset %s", assetID)
	}
	return owner, nil
}

func (w *fakeWorld) TransferOwnership(assetID, newOwner string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failTransferOwnership != nil {
		return w.failTransferOwnership
	}

	if w.owners[assetID] == newOwner {
		return nil
	}

	w.owners[assetID] = newOwner
	w.transfers[assetID]++
	return nil
}

func (w *fakeWorld) Mint(name string, image []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.mintSeq++
	assetID := fmt.Sprintf("minted-%d", w.mintSeq)
	w.owners[assetID] = "minter"
	return assetID, nil
}

func (w *fakeWorld) CreateListing(assetID, seller string, price uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if l, ok := w.listings[assetID]; ok && !l.sold {
		return market.ErrAlreadyListed
	}

	w.listings[assetID] = &fakeListing{seller: seller, price: price}

	if w.timeoutCreateListing {
		// The listing was created but the response never arrived.
		return market.ErrUnknownOutcome
	}

	return nil
}

func (w *fakeWorld) IsListed(assetID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failIsListed != nil {
		return false, w.failIsListed
	}

	l, ok := w.listings[assetID]
	return ok && !l.sold, nil
}

func (w *fakeWorld) OriginalOwner(assetID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.listings[assetID]
	if !ok {
		return "", market.ErrNotListed
	}
	if l.sold {
		return "", market.ErrAlreadySold
	}
	return l.seller, nil
}

func (w *fakeWorld) ListedPrice(assetID string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.listings[assetID]
	if !ok {
		return 0, market.ErrNotListed
	}
	if l.sold {
		return 0, market.ErrAlreadySold
	}
	return l.price, nil
}

func (w *fakeWorld) CompletePurchase(assetID, seller, buyer string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.completeCalls++

	if w.failCompleteCount > 0 {
		w.failCompleteCount--
		return w.failComplete
	}

	l, ok := w.listings[assetID]
	if !ok {
		return market.ErrNotListed
	}

	if l.sold {
		// Identical arguments mean an earlier attempt landed;
		// repeating them is a no-op.
		if l.seller == seller && l.buyer == buyer {
			return nil
		}
		return market.ErrAlreadySold
	}

	l.sold = true
	l.buyer = buyer
	w.owners[assetID] = buyer
	w.transfers[assetID]++
	return nil
}

func (w *fakeWorld) MarketplaceAccount() (string, error) {
	return "MKT", nil
}

func (w *fakeWorld) Transfer(from, to string, amount uint64) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failLedgerTransfer != nil {
		return "", w.failLedgerTransfer
	}

	if w.balances[from] < amount {
		return "", market.ErrInsufficientFunds
	}

	w.balances[from] -= amount
	w.balances[to] += amount

	w.receiptSeq++
	return fmt.Sprintf("rcpt-%d", w.receiptSeq), nil
}

// fakeJournal collects incidents in memory.
type fakeJournal struct {
	mu        sync.Mutex
	incidents []*db.Incident
}

func (j *fakeJournal) Record(inc *db.Incident) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.incidents = append(j.incidents, inc)
	return nil
}

func (j *fakeJournal) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.incidents)
}
