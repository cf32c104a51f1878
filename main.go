package main

import (
	"flag"
	_ "net/http/pprof"
	"openc/config"
	"openc/db"
	"openc/gallery"
	"openc/identity"
	"openc/log"
	"openc/mail"
	"openc/rpc"
	"openc/tasks"
	"openc/trade"
)

var enableMail bool

func init() {
	flag.BoolVar(&enableMail, "mail", false, "If mail alert is enabled")
}

// consoleRenderer is a minimal rendering collaborator: it prints view
// models. Real surfaces implement gallery.Renderer the same way.
type consoleRenderer struct{}

func (consoleRenderer) Display(v gallery.View) {
	line := v.Name
	if v.StatusLabel != "" {
		line += " [" + v.StatusLabel + "]"
	}
	if v.PriceLabel != "" {
		line += " " + v.PriceLabel
	}
	if action := v.Action.String(); action != "" {
		line += " (" + action + ")"
	}

	log.Printf("%s  owner: %s\n", line, v.DisplayedOwner)
}

func main() {
	flag.Parse()

	log.Init()
	config.Load(true)
	db.Init()
	mail.Init(enableMail)

	defer mail.AlertIfErr()

	user, err := identity.FromSeed(config.GetUserSeed())
	if err != nil {
		panic(err)
	}
	log.Printf("Current user account: %s\n", user.Account())

	assets := rpc.NewAssetClient(config.GetAssetRegistryURLs(), user)
	marketplace := rpc.NewMarketClient(config.GetMarketplaceURLs(), user)
	ledger := rpc.NewTokenClient(config.GetTokenLedgerURLs(), user)

	projector := &gallery.Projector{
		Assets:  assets,
		Market:  marketplace,
		Viewer:  user.Account(),
		Workers: config.GetGoroutines(),
	}

	renderer := consoleRenderer{}

	trader := &trade.Trader{
		Assets:      assets,
		Market:      marketplace,
		Ledger:      ledger,
		Journal:     db.Journal{},
		Account:     user.Account(),
		Marketplace: config.GetMarketplaceAccount(),
		StepRetry:   config.GetStepRetry(),
		OnChange: func(assetID string) {
			renderer.Display(projector.Project(assetID, gallery.RoleAuto))
		},
	}
	trader.OnIncident = func(inc *db.Incident) {
		tasks.Pin(projector, inc)
	}

	tasks.Run(trader, projector)
	tasks.PinOpenIncidents(projector)

	displayGalleries(projector, renderer)

	select {}
}

func displayGalleries(projector *gallery.Projector, renderer gallery.Renderer) {
	log.Printf("My collection:\n")
	collection, err := projector.ProjectCollection()
	if err != nil {
		log.Error.Printf("Failed to project collection: %v\n", err)
	}
	for _, view := range collection {
		renderer.Display(view)
	}

	log.Printf("Discover:\n")
	discover, err := projector.ProjectDiscover()
	if err != nil {
		log.Error.Printf("Failed to project discover gallery: %v\n", err)
	}
	for _, view := range discover {
		renderer.Display(view)
	}
}
