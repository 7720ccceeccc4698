/*
Package errors implements the error taxonomy used across cosign.

The idea is to reuse as many errors from this package as possible and define
custom package errors only when absolutely necessary.

If you want to register a custom error, use Register(code, description).
To create an error instance, use ErrXxx.New, ErrXxx.Newf or Wrap(ErrXxx, ...).
Always test for an error kind using ErrXxx.Is(err), never by comparing the
message.

Errors carry a stack trace, attached once at the most inner wrap.
Once you have an error, you can use fmt.Printf/Sprintf to get more context
	%s is just the error message
	%+v is the full stack trace
*/
package errors
