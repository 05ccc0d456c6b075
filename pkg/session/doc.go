// Package session keeps per-user forecasting workspaces in process memory.
//
// A Store maps opaque session ids to Sessions. Each Session holds two
// namespaces: generic values (Scalar or *Table) and named tables. Nothing is
// persisted; a restart discards every session.
//
// # Expiry
//
// Every session expires MaxSessionAge after creation unless extended. Expiry
// is enforced lazily on Get, which destroys the session and returns an error
// matching both ErrSessionNotFound and ErrSessionExpired, and eagerly by the
// Sweeper.
//
// # Memory pressure
//
// The Accountant estimates per-session footprints. When the aggregate
// estimate exceeds MaxAggregateMemory the Sweeper evicts sessions in order of
// least recent access until the aggregate fits. The budget is soft: it is
// only enforced once per sweep cycle.
//
// # Usage
//
//	store := session.NewFromConfig(cfg, session.WithLogger(log))
//	defer store.Close()
//
//	id := store.Create(ctx, "")
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//		// errors.Is(err, session.ErrSessionNotFound)
//	}
//	_ = sess.StoreTable("sales", session.NewTable(cols, rows))
//
// # Concurrency
//
// Store and Session are safe for concurrent use. The store is sharded by id;
// shard locks are always taken before a session lock. Destruction happens
// under the shard write lock, so a session is never observable half-destroyed.
package session
