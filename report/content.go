package report

import (
	"strconv"
	"strings"
)

// showText returns the text shown by each Tj, TJ, ' and " operator in a
// content stream, in stream order. TJ arrays are joined into one run.
func showText(stream []byte) []string {
	var runs []string
	var operands []token
	for _, t := range tokenize(string(stream)) {
		if t.kind != tokOperator {
			operands = append(operands, t)
			continue
		}
		switch t.value {
		case "Tj", "'", `"`:
			if n := len(operands); n > 0 && operands[n-1].kind == tokString {
				runs = append(runs, operands[n-1].value)
			}
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				var sb strings.Builder
				for _, c := range operands[n-1].children {
					if c.kind == tokString {
						sb.WriteString(c.value)
					}
				}
				runs = append(runs, sb.String())
			}
		}
		operands = operands[:0]
	}
	return runs
}

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokOperator
	tokArray
)

type token struct {
	kind     tokenKind
	value    string
	children []token
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == 0
}

func isDelim(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("()<>[]{}/%", ch) >= 0
}

// tokenize splits a content stream into strings, numbers, arrays and
// operators. Names, hex strings and dictionaries are skipped.
func tokenize(s string) []token {
	toks, _ := tokenizeUntil(s, 0, 0)
	return toks
}

// tokenizeUntil reads tokens from pos until end of input or the closing
// byte stop, returning the position after it.
func tokenizeUntil(s string, pos int, stop byte) ([]token, int) {
	var toks []token
	i, n := pos, len(s)
	for i < n {
		ch := s[i]
		switch {
		case stop != 0 && ch == stop:
			return toks, i + 1
		case isSpace(ch):
			i++
		case ch == '%':
			for i < n && s[i] != '\n' && s[i] != '\r' {
				i++
			}
		case ch == '(':
			str, end := readString(s, i)
			toks = append(toks, token{kind: tokString, value: str})
			i = end
		case ch == '[':
			children, end := tokenizeUntil(s, i+1, ']')
			toks = append(toks, token{kind: tokArray, children: children})
			i = end
		case ch == '<':
			depth := 0
			for i < n {
				if s[i] == '<' {
					depth++
				} else if s[i] == '>' {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
				i++
			}
		case ch == '/':
			i++
			for i < n && !isDelim(s[i]) {
				i++
			}
		case ch == ']' || ch == '>' || ch == '{' || ch == '}' || ch == ')':
			i++
		default:
			start := i
			for i < n && !isDelim(s[i]) {
				i++
			}
			word := s[start:i]
			if _, err := strconv.ParseFloat(word, 64); err == nil {
				toks = append(toks, token{kind: tokNumber, value: word})
			} else {
				toks = append(toks, token{kind: tokOperator, value: word})
			}
		}
	}
	return toks, i
}

// readString reads a parenthesised string starting at s[pos] == '(' and
// returns its decoded content and the index after the closing ')'.
func readString(s string, pos int) (string, int) {
	var buf strings.Builder
	i, n := pos+1, len(s)
	depth := 1
	for ; i < n && depth > 0; i++ {
		ch := s[i]
		switch {
		case ch == '\\' && i+1 < n:
			i++
			next := s[i]
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r', '\n':
				// line continuation
			default:
				if next >= '0' && next <= '7' {
					oct := string(next)
					for j := 0; j < 2 && i+1 < n && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
						i++
						oct += string(s[i])
					}
					val, _ := strconv.ParseInt(oct, 8, 32)
					buf.WriteByte(byte(val))
				} else {
					buf.WriteByte(next)
				}
			}
		case ch == '(':
			depth++
			buf.WriteByte(ch)
		case ch == ')':
			depth--
			if depth > 0 {
				buf.WriteByte(ch)
			}
		default:
			buf.WriteByte(ch)
		}
	}
	return buf.String(), i
}
