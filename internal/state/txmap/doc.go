// Package txmap provides a snapshot-isolated, log-structured transactional map.
//
// A Map keeps a base view of committed state plus an ordered list of edit
// pages holding the writes made since each snapshot point. Reads consult the
// pages newest first, so the most recent write to a key always wins.
//
// CreateSnapshot seals pages into an immutable Snapshot and opens a fresh
// page for subsequent writes. The caller persists the snapshot's edits (for
// example by passing a Visitor that writes them to a checkpoint) and calls
// Snapshot.OnCommitted once the write is durable; only then are the sealed
// pages folded into the base view. A snapshot whose commit failed is simply
// dropped: its pages stay in the map and their edits reappear in the next
// full snapshot. There is no rollback step.
//
// Snapshots are strictly sequential. Create, persist and resolve one before
// creating the next. The map performs no internal locking.
package txmap
