/*
Package expiration fails open proposals once their deadline passed.

A Monitor keeps one timer per watched proposal. When a timer fires the
proposal is handed to an Expirer, usually the multisig Controller. Failed
attempts are retried until they succeed or the watch is cancelled.
*/
package expiration
