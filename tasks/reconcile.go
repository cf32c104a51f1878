package tasks

import (
	"errors"
	"fmt"
	"openc/config"
	"openc/db"
	"openc/gallery"
	"openc/log"
	"openc/mail"
	"openc/market"
	"openc/trade"
	"time"
)

// alertAfterAttempts is the number of failed replay passes after which
// an incident is escalated by mail for administrative reconciliation.
const alertAfterAttempts = 3

// reconcileLoop replays open incidents on an interval. Only the failed
// step of each incident is replayed; see trade.Reconcile.
func reconcileLoop(trader *trade.Trader, projector *gallery.Projector) {
	defer mail.AlertIfErr()

	interval := time.Duration(config.GetReconcileIntervalSecs()) * time.Second

	for {
		time.Sleep(interval)

		reconcilePass(trader, projector)
	}
}

func reconcilePass(trader *trade.Trader, projector *gallery.Projector) {
	incidents, err := db.GetOpenIncidents()
	if err != nil {
		log.Error.Printf("Failed to load open incidents: %v\n", err)
		return
	}

	for _, inc := range incidents {
		replayIncident(trader, projector, inc)
	}
}

func replayIncident(trader *trade.Trader, projector *gallery.Projector, inc *db.Incident) {
	err := trader.Reconcile(inc)
	if err == nil {
		if err := db.ResolveIncident(inc.ID); err != nil {
			log.Error.Printf("Failed to resolve incident %d: %v\n", inc.ID, err)
			return
		}

		log.Printf("Incident %d (%s, asset %s) reconciled.\n", inc.ID, inc.Kind, inc.AssetID)
		projector.ClearLocalStatus(inc.AssetID)
		return
	}

	if errors.Is(err, trade.ErrManualReconcile) {
		// Nothing to replay automatically, leave the row open.
		return
	}

	attempts, dbErr := db.BumpIncidentAttempts(inc.ID)
	if dbErr != nil {
		log.Error.Printf("Failed to bump attempts of incident %d: %v\n", inc.ID, dbErr)
		return
	}

	log.Printf("Incident %d (%s, asset %s) replay failed (pass %d): %v\n",
		inc.ID, inc.Kind, inc.AssetID, attempts, err)

	if shouldEscalate(attempts) {
		mail.SendNotify(
			fmt.Sprintf("Incident Replay Exhausted: %s", inc.Kind),
			fmt.Sprintf("incident=%d\nasset=%s\nseller=%s\nbuyer=%s\namount=%d\nreceipt=%s\nlast error: %v\n",
				inc.ID, inc.AssetID, inc.Seller, inc.Buyer, inc.Amount, inc.Receipt, err),
		)
	}
}

// shouldEscalate reports whether a failed replay pass warrants a mail
// alert. Every pass at or past the bound alerts: an exact-match check
// would stay silent forever if the bump of the threshold pass was lost.
func shouldEscalate(attempts uint) bool {
	return attempts >= alertAfterAttempts
}

// Pin reflects an open incident in the projector, so the asset renders
// in its administrative state instead of a stale regular one.
func Pin(projector *gallery.Projector, inc *db.Incident) {
	switch inc.Kind {
	case db.IncidentTransferFailed:
		projector.SetLocalStatus(inc.AssetID, market.InconsistentListed)
	case db.IncidentPaidNotDelivered:
		projector.SetLocalStatus(inc.AssetID, market.InconsistentPaid)
	}
}

// PinOpenIncidents loads unresolved incidents at startup and pins their
// administrative states, so inconsistencies survive a client restart.
func PinOpenIncidents(projector *gallery.Projector) {
	incidents, err := db.GetOpenIncidents()
	if err != nil {
		log.Error.Printf("Failed to load open incidents: %v\n", err)
		return
	}

	for _, inc := range incidents {
		Pin(projector, inc)
	}

	if len(incidents) > 0 {
		log.Printf("%d open incidents pinned.\n", len(incidents))
	}
}
