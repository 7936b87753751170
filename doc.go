/*
Package kvbucket implements typed, namespaced sub-stores on top of a flat
key-value store that only knows how to Get and Set byte strings.

We implement:

1. Buckets, collections of typed values under a namespace.

2. Singletons, a single typed value stored under a namespace (for example,
a “config” value).

3. Sequences, singletons holding a uint64 counter.

4. Secondary indices, reverse mappings from a value derived from a record
to the primary keys of all records that currently map to it.

# Technical Details

**Storage.**
Everything runs on top of Storage, which only has Get and Set. There are no
transactions, no iteration and no deletion. Backends (in-memory, Bolt,
LevelDB, journal) live in this package too; Bolt and LevelDB can run a whole
read-modify-write sequence inside one of their transactions via Update.

**Namespaces.**
A namespace is a list of segments. ComposePrefix turns the list into a key
prefix: each segment is written as a 2-byte big-endian length followed by the
segment bytes, and the prefix is closed with 0xFFFF. No composed prefix is
a prefix of another composed prefix, so keys appended to one namespace never
show up in another one.

The terminator and the header on the last segment make this layout
incompatible with stores that write the last segment bare (e.g. "foo" key
0000007f as 0003 666f6f 0000007f). Here that key is 0003 666f6f ffff 0000007f.

**Values.**
A Type describes how values are encoded (msgpack by default, or JSON,
optionally snappy-compressed) and carries a short name used in errors.

**Index entries.**
An index stores, at indexPrefix ++ derivedKey, the list of primary keys whose
records map to derivedKey. Entries are never deleted; removing the last
reference leaves an empty list behind.

**Concurrency.**
None of the read-modify-write operations (Update, NextVal, AddRef, RemoveRef,
Index.Write) are atomic. Callers that share a store between goroutines must
serialize these sequences themselves, e.g. via BoltStorage.Update.
*/
package kvbucket
