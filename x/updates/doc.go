/*
Package updates implements chain update instructions: governance level
transactions that change chain parameters or authorization keys and that
require signatures from several authorization keys.

Every kind of update is a distinct payload type implementing Payload. The set
of kinds is closed; a kind that is not registered in this package cannot be
encoded, decoded or signed.
*/
package updates
