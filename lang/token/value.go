package token

// Value carries the payload produced by the scanner for a single token: its
// raw source text, its position, and (for literal tokens) the decoded value.
type Value struct {
	Raw    string // verbatim source text of the token
	Pos    Pos
	Int    int64
	Float  float64
	String string // decoded string literal content (STRING tokens only)
}
