/*
Package cosign defines interfaces and primitives shared by the multi-signature
proposal engine: storage, time and logging.

A proposal wraps either a governance update instruction (x/updates) or an
account transaction (x/accounts). It collects signatures until its threshold
is met (x/multisig) and is failed automatically when its deadline passes
without being submitted (x/expiration).
*/
package cosign
