package paste

import "sort"

// Token is one unit of tokenized paste text: either a literal text run or
// a recognized stamp name.
type Token struct {
	Text  string
	Stamp string
}

func (t Token) IsStamp() bool { return t.Stamp != "" }

// Tokenize splits text against the known stamp names with
// longest-match-first, leftmost-first scanning: at each position the
// longest matching name is consumed as a stamp token; everything else
// accumulates into text tokens. Returns the tokens and the stamp count.
func Tokenize(text string, names []string) ([]Token, int) {
	if text == "" {
		return nil, 0
	}
	byLength := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			byLength = append(byLength, name)
		}
	}
	sort.SliceStable(byLength, func(i, j int) bool {
		return len(byLength[i]) > len(byLength[j])
	})

	var tokens []Token
	stamps := 0
	pending := ""
	for i := 0; i < len(text); {
		matched := ""
		for _, name := range byLength {
			if len(name) <= len(text)-i && text[i:i+len(name)] == name {
				matched = name
				break
			}
		}
		if matched == "" {
			pending += text[i : i+1]
			i++
			continue
		}
		if pending != "" {
			tokens = append(tokens, Token{Text: pending})
			pending = ""
		}
		tokens = append(tokens, Token{Stamp: matched})
		stamps++
		i += len(matched)
	}
	if pending != "" {
		tokens = append(tokens, Token{Text: pending})
	}
	return tokens, stamps
}
