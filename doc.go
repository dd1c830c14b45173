/*
Package cht implements a concurrent, resizable, lock-free hash table whose readers never block and whose removed items are reclaimed through RCU.

# Items
The table does not allocate nodes. Every item embeds a Link, so a table of *Entry values is built from

	type Entry struct {
		cht.Link[*Entry]
		Key, Value int
	}

Items are ordered by the mixed hash inside each bucket chain. Items with equal keys may coexist; InsertUnique refuses to add a second one.

# Reading
Every call enters a read-side section of the table's rcu.Domain by itself. An item returned by Find may be handed to Ops.RemoveCallback as soon as the call returns,
so callers that keep using a found item wrap the lookup in ReadLock and Unlock and use FindLazy inside.

# Resizing
A background goroutine doubles the bucket array when the average chain is longer than the max load and halves it when it drops to a quarter of that.
Buckets migrate one at a time; lookups and updates continue on a mix of old and new buckets, helping the resizer where they have to.
Barrier waits until the table has the size its load calls for.

# Reclamation
Ops.RemoveCallback runs on the reclaimer goroutine of the rcu.Domain after a grace period, so the callback may recycle or reinsert the item.
*/
package cht
