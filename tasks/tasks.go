package tasks

import (
	"openc/gallery"
	"openc/log"
	"openc/rpc"
	"openc/trade"
)

// Run starts the background goroutines: server health tracing and
// incident reconciliation. Workflows themselves run on demand, driven
// by the rendering collaborator.
func Run(trader *trade.Trader, projector *gallery.Projector) {
	log.Printf("Refreshing service pools.")
	rpc.RefreshServers()

	go rpc.TraceHealth()
	go reconcileLoop(trader, projector)
}
