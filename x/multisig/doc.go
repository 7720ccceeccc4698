/*
Package multisig implements proposals: transactions that collect
signatures from several independent key holders before they are submitted
to the node.

A proposal wraps either a governance update instruction or an account
transaction. It starts Open, accepts signatures that are checked against
the on-chain keys, and once the threshold is met it can be submitted. The
Controller owns all state transitions and persists proposals in a
ProposalBucket.

	Open --(submit accepted)--> Submitted --(outcome)--> Finalized | Failed | Expired
	Open --(submit rejected or deadline passed)--> Failed
	Open --(close)--> Closed
*/
package multisig
