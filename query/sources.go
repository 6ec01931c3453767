package query

// ExtractSources walks the token stream and collects the quoted source
// paths appearing in FROM lists and JOIN clauses. It is a pre-pass run
// before planning so the resolver can bind a reader to every inline
// path; it never fails, returning whatever sources it can see.
func ExtractSources(sql string) []string {
	tokens := Tokenize(sql)
	var sources []string

	expectSource := false
	inFromList := false

	for _, tok := range tokens {
		switch tok.Type {
		case TokenFrom:
			expectSource = true
			inFromList = true
		case TokenJoin:
			expectSource = true
		case TokenComma:
			if inFromList {
				expectSource = true
			}
		case TokenWhere, TokenGroup, TokenOrder, TokenLimit, TokenOffset, TokenOn:
			expectSource = false
			inFromList = false
		case TokenString:
			if expectSource {
				sources = append(sources, tok.Value)
				expectSource = false
			}
		case TokenIdent:
			if expectSource {
				// Unquoted table name or an alias; either way the
				// source position is consumed.
				expectSource = false
			}
		case TokenInner, TokenLeft, TokenRight, TokenFull, TokenCross, TokenOuter:
			inFromList = false
		}
	}

	return sources
}
