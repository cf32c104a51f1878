package gallery

import (
	"fmt"
	"openc/cache"
	"openc/mail"
	"openc/market"
	"openc/nft"
	"sync"
)

// Role selects which gallery an asset is projected for.
type Role uint8

const (
	// RoleAuto resolves to collection or discover from remote state.
	RoleAuto Role = iota
	// RoleCollection is the viewer's own assets.
	RoleCollection
	// RoleDiscover is the marketplace browse gallery.
	RoleDiscover
)

// Action is what the viewer can do with an asset.
type Action uint8

// Available actions.
const (
	ActionNone Action = iota
	ActionSell
	ActionBuy
)

func (a Action) String() string {
	switch a {
	case ActionSell:
		return "Sell"
	case ActionBuy:
		return "Buy"
	default:
		return ""
	}
}

// View is the per-asset presentation state handed to the renderer.
// It is rebuilt from remote reads on every refresh, never treated as
// source of truth, and discarded on the next refresh.
type View struct {
	AssetID        string
	Name           string
	Image          []byte
	DisplayedOwner string
	Status         market.Status
	StatusLabel    string
	Action         Action
	Loading        bool
	PriceLabel     string

	// Degraded marks a view built from failed reads. The asset still
	// renders (with unknown owner) so one unreachable asset never
	// blocks the rest of the collection.
	Degraded bool
}

// Renderer is the rendering collaborator. The core hands it immutable
// view models and never hears back.
type Renderer interface {
	Display(v View)
}

// AssetReader is the read-only asset registry port.
type AssetReader interface {
	Name(assetID string) (string, error)
	Owner(assetID string) (string, error)
	Image(assetID string) ([]byte, error)
}

// MarketReader is the read-only marketplace registry port.
type MarketReader interface {
	IsListed(assetID string) (bool, error)
	OriginalOwner(assetID string) (string, error)
	ListedPrice(assetID string) (uint64, error)
	OwnedAssets(account string) ([]string, error)
	ListedAssets() ([]string, error)
}

const marketplaceLabel = "OpenC Marketplace"

// Projector maps remote state into per-asset view models. It performs
// no writes; workflows notify it after every state-changing step and it
// re-reads whatever it needs.
type Projector struct {
	Assets AssetReader
	Market MarketReader

	// Viewer is the current user account id.
	Viewer string

	// Workers bounds concurrent projections of one collection.
	Workers int

	mu sync.Mutex
	// busy marks assets with a workflow in flight.
	busy map[string]bool
	// local holds the client-local administrative states entered on
	// partial-effect failures. Remote reads cannot see those.
	local map[string]market.Status
}

// SetBusy marks or clears the loading state of an asset.
func (p *Projector) SetBusy(assetID string, busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy == nil {
		p.busy = make(map[string]bool)
	}
	p.busy[assetID] = busy
}

// SetLocalStatus pins an administrative status for an asset,
// shown until ClearLocalStatus.
func (p *Projector) SetLocalStatus(assetID string, status market.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.local == nil {
		p.local = make(map[string]market.Status)
	}
	p.local[assetID] = status
}

// ClearLocalStatus drops the pinned status of an asset.
func (p *Projector) ClearLocalStatus(assetID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.local, assetID)
}

func (p *Projector) flags(assetID string) (bool, market.Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, pinned := p.local[assetID]
	return p.busy[assetID], status, pinned
}

// Project builds the view model of one asset from current remote state.
func (p *Projector) Project(assetID string, role Role) View {
	view := View{AssetID: assetID}

	busy, pinned, hasPinned := p.flags(assetID)
	view.Loading = busy

	if hasPinned {
		// A partial-effect failure pinned an administrative state;
		// it wins over whatever the registries report, including
		// registries that fail to report at all. The service that
		// caused the incident may well still be down.
		view.Status = pinned
		view.StatusLabel = pinned.String()

		asset, err := p.readAsset(assetID)
		view.Name = asset.Name
		view.Image = asset.Image
		if err != nil {
			return p.degrade(view)
		}
		view.DisplayedOwner = asset.Owner
		view.Action = ActionNone
		return view
	}

	asset, err := p.readAsset(assetID)
	view.Name = asset.Name
	view.Image = asset.Image
	if err != nil {
		return p.degrade(view)
	}
	view.DisplayedOwner = asset.Owner

	listed, err := p.Market.IsListed(assetID)
	if err != nil {
		return p.degrade(view)
	}

	if listed {
		return p.projectListed(view, role)
	}

	view.Status = market.Unlisted
	if asset.Owner == p.Viewer && !busy {
		view.Action = ActionSell
	}

	return view
}

// readAsset reads the identity fields of one asset, serving the
// immutable name and image from the cache when possible.
func (p *Projector) readAsset(assetID string) (nft.Asset, error) {
	asset := nft.Asset{ID: assetID}

	name, image, ok := cache.GetAssetMeta(assetID)
	if !ok {
		var err error
		name, err = p.Assets.Name(assetID)
		if err != nil {
			return asset, err
		}

		image, err = p.Assets.Image(assetID)
		if err != nil {
			return asset, err
		}

		cache.PutAssetMeta(assetID, name, image)
	}
	asset.Name = name
	asset.Image = image

	owner, err := p.Assets.Owner(assetID)
	if err != nil {
		return asset, err
	}
	asset.Owner = owner

	return asset, nil
}

func (p *Projector) projectListed(view View, role Role) View {
	listing := market.Listing{AssetID: view.AssetID, Status: market.Listed}

	seller, err := p.Market.OriginalOwner(view.AssetID)
	if err != nil {
		return p.degrade(view)
	}
	listing.Seller = seller

	view.Status = listing.Status
	view.StatusLabel = listing.Status.String()
	view.DisplayedOwner = marketplaceLabel

	if role == RoleAuto {
		if listing.Seller == p.Viewer {
			role = RoleCollection
		} else {
			role = RoleDiscover
		}
	}

	if role == RoleCollection {
		// The viewer's own listed asset: held by the marketplace,
		// nothing further to do with it.
		view.Action = ActionNone
		return view
	}

	price, err := p.Market.ListedPrice(view.AssetID)
	if err != nil {
		return p.degrade(view)
	}
	listing.Price = price

	view.PriceLabel = fmt.Sprintf("%d TRL", listing.Price)
	if listing.Seller != p.Viewer && !view.Loading {
		view.Action = ActionBuy
	}

	return view
}

func (p *Projector) degrade(view View) View {
	view.Degraded = true
	view.Action = ActionNone
	if view.DisplayedOwner == "" {
		view.DisplayedOwner = "unknown"
	}
	return view
}

// ProjectCollection projects all assets owned by the viewer,
// including those currently held by the marketplace for the viewer.
func (p *Projector) ProjectCollection() ([]View, error) {
	ids, err := p.Market.OwnedAssets(p.Viewer)
	if err != nil {
		return nil, err
	}

	return p.projectAll(ids, RoleCollection), nil
}

// ProjectDiscover projects all assets with a live listing.
func (p *Projector) ProjectDiscover() ([]View, error) {
	ids, err := p.Market.ListedAssets()
	if err != nil {
		return nil, err
	}

	return p.projectAll(ids, RoleDiscover), nil
}

type indexedView struct {
	idx  int
	view View
}

// projectAll projects a set of assets concurrently. Each asset is an
// independent task; a slow or failing asset never blocks the others.
func (p *Projector) projectAll(ids []string, role Role) []View {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	out := make(chan indexedView, len(ids))

	for i := 0; i < workers; i++ {
		go func() {
			defer mail.AlertIfErr()

			for idx := range jobs {
				out <- indexedView{
					idx:  idx,
					view: p.Project(ids[idx], role),
				}
			}
		}()
	}

	for i := range ids {
		jobs <- i
	}
	close(jobs)

	views := make([]View, len(ids))
	for range ids {
		iv := <-out
		views[iv.idx] = iv.view
	}

	return views
}
