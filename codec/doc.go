/*
Package codec implements the binary wire format expected by the node.

All integers are big endian. Maps are written as an element count followed by
entries in ascending key order so that the same logical map always produces
the same bytes. Lists keep their input order.

Encoding is done with a Writer that remembers the first error. Encoders of
composite values are plain compositions of Writer calls and do not check
errors on every step; the caller checks Writer.Err once at the end.
*/
package codec
