// Package device provides the entity catalogue for the hub.
//
// The catalogue holds the three entity kinds that own properties:
// connectors (one integration instance per protocol), devices and their
// channels. Devices form a shallow tree: gateways own sub-devices and
// bridged third-party devices, which share the gateway's transport.
//
// # Architecture
//
//	┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐
//	│     Registry     │    │    Repository    │    │    Validation    │
//	│   (registry.go)  │───▶│  (repository.go) │    │ (validation.go)  │
//	│                  │    │                  │    │                  │
//	│ • Cached lookups │    │ • SQLite queries │    │ • Category rules │
//	│ • Child listing  │    │ • Cascade delete │    │ • Capabilities   │
//	│ • Reachability   │    │                  │    │                  │
//	└──────────────────┘    └──────────────────┘    └──────────────────┘
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	children, _ := registry.ListChildren(ctx, gatewayID, device.CategorySubDevice)
//	endpoint, err := registry.Reachability(ctx, dev)
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Returned values are copies.
package device
