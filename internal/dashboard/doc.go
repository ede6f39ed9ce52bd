// Package dashboard is the candidate dashboard controller.
//
// A Dashboard mirrors the candidate list in memory, applies realtime
// changes delivered by a realtime.Manager and performs writes through a
// Backend (the hosted REST API or a postgres store plus local resume
// directory). Writes are optimistic: the mirror changes first and is
// rolled back if the backend refuses. After each successful write a
// broadcast is sent to other sessions on the same channel.
package dashboard
