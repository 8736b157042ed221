package engine

// Ledger holds the latest choice per question id for one attempt.
type Ledger struct {
	choices map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{choices: make(map[string]int)}
}

// Record stores a choice, replacing any earlier one for the same question.
func (l *Ledger) Record(questionID string, option int) {
	l.choices[questionID] = option
}

// Choice returns the recorded option for a question.
func (l *Ledger) Choice(questionID string) (int, bool) {
	opt, ok := l.choices[questionID]
	return opt, ok
}

// Len is the number of answered questions.
func (l *Ledger) Len() int {
	return len(l.choices)
}

// Snapshot copies the ledger.
func (l *Ledger) Snapshot() map[string]int {
	out := make(map[string]int, len(l.choices))
	for id, opt := range l.choices {
		out[id] = opt
	}
	return out
}
