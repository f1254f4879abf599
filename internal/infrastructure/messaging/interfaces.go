// Package messaging pushes resolution updates to connected workbook hosts
// over websockets, scoped per workspace.
package messaging

import "github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"

// Broadcaster is the surface the scheduling and filter layers use to notify
// hosts about resolved balances and invalidated state.
type Broadcaster interface {
	NotifyResolved(workspaceID string, keys []ledger.BalanceKey)
	NotifyInvalidated(workspaceID, reason string)
}
