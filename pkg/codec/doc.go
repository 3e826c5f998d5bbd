// Package codec implements Laser's deterministic byte layout for logical
// keys and values (spec.md §3, §4.1).
//
// Every physical key begins with a row prefix encoding (database, table,
// primary key tuple, column key tuple) as length-prefixed segments, so two
// distinct tuples never produce one a prefix of the other. A one-byte
// family tag follows (raw string/counter, hash, set, list, sorted set); for
// collection families a second sub-tag marks the metadata head (no further
// bytes) versus a sub-entry (field/member/index/score suffix). Because the
// family tag sits before the head/entry split, every sub-entry of a
// collection shares the byte prefix ending at that family tag with its own
// metadata head, and no unrelated key can share it — a single byte-range
// scan over that prefix enumerates the head plus every live sub-entry.
//
// Values are self-describing: the first bytes after the fixed 8-byte expiry
// field (0 when no TTL is set) name the variant, so a reader recovers the value's kind from the
// payload alone without consulting the key.
package codec
