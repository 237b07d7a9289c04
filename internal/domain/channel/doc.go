// Package channel contains the core domain model for multi-channel inventory
// synchronization: inventory snapshots and deltas, order events, connector
// credentials, and the port interfaces implemented by the infrastructure
// layer (platform connectors, persistence, state stores).
//
// The package follows the Ports & Adapters pattern: every external
// dependency of the reconciliation and order flows is expressed here as an
// interface, and concrete adapters live under internal/infrastructure.
package channel
