/*
Package accounts implements the account transactions that can be proposed
for signing by the holders of a multi credential account.

A transaction consists of a Header, a Payload and the signatures collected
so far. Signatures are made by keys of the account credentials over the
SignDigest of the transaction.
*/
package accounts
