/*
Package keel provides a version-control engine core: a
content-addressable object store, a staging index, a commit and branch
graph, and an ignore-pattern filter.

The primary goal of keel is to give higher layers (command-line tools,
sync daemons, UIs) a small set of deterministic building blocks:
identical content always hashes to the same object, trees serialize
canonically regardless of insertion order, and a ref is only ever
advanced after the commit it points at is durably written.
*/
package keel
