package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Transaction is a single parsed entry from a free-text message.
// Amount is always positive; a leading minus in the input marks intent
// and is folded into the absolute value.
type Transaction struct {
	Amount       decimal.Decimal
	CategoryText string
	IsIncome     bool
}

// Kind classifies a message for routing before parsing.
type Kind int

const (
	// KindNone is an empty or blank message.
	KindNone Kind = iota
	// KindTransactions is a message the parser can extract entries from.
	KindTransactions
	// KindAmountOnly is a bare number (optional currency token, no
	// letters). Routed to the guided quick-entry flow: there is no
	// category text to parse.
	KindAmountOnly
	// KindCategoryOnly is text without any digits. Routed to the guided
	// flow pre-filled with the category text.
	KindCategoryOnly
)

// Parser extracts transactions from messages using an injectable lexicon.
type Parser struct {
	lex        Lexicon
	markers    map[string]bool
	amountRe   *regexp.Regexp
	plusRe     *regexp.Regexp
	plusLineRe *regexp.Regexp
	pureRe     *regexp.Regexp
}

const numPattern = `\d[\d \x{00a0}.,]*`

// New builds a Parser for the given lexicon.
func New(lex Lexicon) *Parser {
	escaped := make([]string, 0, len(lex.CurrencyTokens))
	for _, tok := range lex.CurrencyTokens {
		escaped = append(escaped, regexp.QuoteMeta(tok))
	}
	// Currency suffix: a configured unit word/symbol or a three-letter code.
	cur := `(?:` + strings.Join(escaped, "|") + `|[A-Za-z]{3}\b)?`

	markers := make(map[string]bool, len(lex.IncomeMarkers))
	for _, m := range lex.IncomeMarkers {
		markers[strings.ToLower(m)] = true
	}

	return &Parser{
		lex:        lex,
		markers:    markers,
		amountRe:   regexp.MustCompile(`(?i)([-+]?` + numPattern + `)[ \t]*` + cur),
		plusRe:     regexp.MustCompile(`(?i)^\s*\+[ \t]*(` + numPattern + `)[ \t]*` + cur),
		plusLineRe: regexp.MustCompile(`(?m)^[ \t]*\+[ \t]*\d`),
		pureRe:     regexp.MustCompile(`(?i)^-?` + numPattern + `[ \t]*` + cur + `$`),
	}
}

// Detect routes a message: bare amounts and digit-free texts go to the
// guided quick-entry flow instead of the parser.
func (p *Parser) Detect(text string) Kind {
	t := strings.TrimSpace(text)
	if t == "" {
		return KindNone
	}
	if p.pureRe.MatchString(t) {
		return KindAmountOnly
	}
	if !strings.ContainsFunc(t, unicode.IsDigit) {
		return KindCategoryOnly
	}
	return KindTransactions
}

// ExtractAmount returns the absolute value of the first amount in text.
// Used by the guided quick-entry flow after Detect reported KindAmountOnly.
func (p *Parser) ExtractAmount(text string) (decimal.Decimal, error) {
	m := p.amountRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return decimal.Zero, ErrNotANumber
	}
	amount, err := NormalizeAmount(m[1])
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsZero() {
		return decimal.Zero, ErrNonPositive
	}
	return amount.Abs(), nil
}

// Parse extracts zero or more transactions from a multi-line message.
// A message is income when any line starts with "+amount" or the text
// contains an income marker word; otherwise every amount-bearing line is
// an expense.
func (p *Parser) Parse(text string) []Transaction {
	if p.isIncomeMessage(text) {
		return p.parseIncome(text)
	}
	return p.parseExpenses(text)
}

func (p *Parser) isIncomeMessage(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if p.plusLineRe.MatchString(t) {
		return true
	}
	lower := strings.ToLower(t)
	for marker := range p.markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

type parsedLine struct {
	amount   *decimal.Decimal
	leftover string
	consumed bool
}

func (p *Parser) parseExpenses(text string) []Transaction {
	lines := p.splitLines(text)

	// Attach bare description lines to amount-only lines: previous line
	// first, then next.
	for i := range lines {
		if lines[i].amount == nil || lines[i].leftover != "" {
			continue
		}
		if i > 0 && lines[i-1].amount == nil && !lines[i-1].consumed && lines[i-1].leftover != "" {
			lines[i].leftover = lines[i-1].leftover
			lines[i-1].consumed = true
			continue
		}
		if i+1 < len(lines) && lines[i+1].amount == nil && lines[i+1].leftover != "" {
			lines[i].leftover = lines[i+1].leftover
			lines[i+1].consumed = true
		}
	}

	var result []Transaction
	for _, line := range lines {
		if line.amount == nil {
			continue
		}
		categoryText := line.leftover
		if categoryText == "" {
			categoryText = p.lex.Uncategorized
		}
		result = append(result, Transaction{
			Amount:       *line.amount,
			CategoryText: categoryText,
		})
	}
	return result
}

// splitLines extracts the first amount span of each non-empty line.
// Zero amounts are treated as no amount at all, leaving the line eligible
// to serve as category text for a neighbor.
func (p *Parser) splitLines(text string) []parsedLine {
	rawLines := strings.Split(text, "\n")
	lines := make([]parsedLine, 0, len(rawLines))
	for _, raw := range rawLines {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		line := parsedLine{leftover: raw}
		if m := p.amountRe.FindStringSubmatchIndex(raw); m != nil {
			amount, err := NormalizeAmount(raw[m[2]:m[3]])
			if err == nil && !amount.IsZero() {
				abs := amount.Abs()
				line.amount = &abs
				line.leftover = strings.TrimSpace(raw[:m[0]] + raw[m[1]:])
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func (p *Parser) parseIncome(text string) []Transaction {
	var result []Transaction
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		m := p.plusRe.FindStringSubmatchIndex(raw)
		if m == nil {
			m = p.amountRe.FindStringSubmatchIndex(raw)
		}
		if m == nil {
			continue
		}

		amount, err := NormalizeAmount(raw[m[2]:m[3]])
		if err != nil || amount.IsZero() {
			continue
		}

		description := strings.TrimSpace(raw[:m[0]] + raw[m[1]:])
		description = p.stripIncomeMarkers(description)
		if description == "" {
			description = p.lex.NoDescription
		}

		result = append(result, Transaction{
			Amount:       amount.Abs(),
			CategoryText: description,
			IsIncome:     true,
		})
	}
	return result
}

// stripIncomeMarkers removes whole-word income markers from a description,
// case-insensitively, ignoring trailing punctuation on tokens.
func (p *Parser) stripIncomeMarkers(s string) string {
	fields := strings.Fields(s)
	kept := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.ToLower(strings.Trim(field, ".,!?:;"))
		if p.markers[word] {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}
