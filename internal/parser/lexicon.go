package parser

// Lexicon carries the language-specific word lists the parser depends on.
// Injectable so classification can be tested and extended independently
// of any one language.
type Lexicon struct {
	// IncomeMarkers classify a message as income when any of them occurs
	// in the text (substring, case-insensitive) and are stripped from
	// income descriptions (whole-word, case-insensitive).
	IncomeMarkers []string
	// CurrencyTokens are unit words and symbols stripped after the amount.
	CurrencyTokens []string
	// Uncategorized is the category text used when an expense line has no
	// leftover text after amount extraction.
	Uncategorized string
	// NoDescription is the description used when an income line has no
	// leftover text after amount and marker stripping.
	NoDescription string
}

// DefaultLexicon returns the Russian/English lexicon the bot ships with.
func DefaultLexicon() Lexicon {
	return Lexicon{
		IncomeMarkers: []string{
			"доход",
			"зарплата",
			"аванс",
			"приход",
			"получил",
			"получила",
			"заработал",
			"заработала",
			"перевод",
			"премия",
			"гонорар",
			"возврат",
			"кэшбэк",
			"кешбэк",
			"income",
			"salary",
			"advance",
			"received",
			"transfer",
			"bonus",
			"refund",
			"cashback",
		},
		CurrencyTokens: []string{
			"₽",
			"руб.",
			"рублей",
			"руб",
			"р.",
			"rub",
			"$",
			"€",
		},
		Uncategorized: "Без категории",
		NoDescription: "Без описания",
	}
}
