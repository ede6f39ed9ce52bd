// Package poller implements the reconciliation poller.
//
// The poller:
//   - Refetches the full candidate list every 5 minutes by default
//   - Replaces the dashboard mirror, healing changes missed while the
//     realtime subscription was down
//   - Runs once immediately on start
package poller
