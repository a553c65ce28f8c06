// Package parser reads XCSP3 instance documents into the intermediate
// representation.
//
// # Entry points
//
// Parse consumes an XML document from a reader; ParseString and
// ParseFile wrap it for the common cases. ParseFile transparently
// decompresses .lzma archives, which is how XCSP competition instances
// are distributed.
//
// # Error handling
//
// Structural damage (duplicate ids, unparsable XML, bad functional
// syntax) fails the parse with a *ParseError or
// *ir.MalformedInstanceError. Recognized-but-untranslatable constructs
// (symbolic variables, short tuples, operators outside the algebra) do
// not fail the parse: the parser records a constraint as *ir.Unsupported
// or skips the declaration and reports an ir.Diagnostic, leaving the
// rest of the instance usable.
package parser
