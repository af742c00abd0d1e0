// Package signal extracts trade instructions from email bodies.
//
// Extraction is first-match-wins regex scanning, which is fragile by nature:
// an uppercase word in a signature or a number in a subject line can win the
// match. Validation is therefore all-or-nothing; anything short of a complete
// instruction is discarded upstream.
package signal

import (
	"regexp"
	"strconv"
	"strings"
)

type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Signal is a structured trade instruction derived from an email body.
type Signal struct {
	Action Action
	Symbol string
	Price  float64
}

var (
	actionRe       = regexp.MustCompile(`\b(BUY|SELL)\b`)
	labeledSymRe   = regexp.MustCompile(`Symbol:\s*([A-Z]{1,6})`)
	bareSymRe      = regexp.MustCompile(`[A-Z]{1,6}`)
	labeledPriceRe = regexp.MustCompile(`Price:\s*(\d+\.\d+)`)
	barePriceRe    = regexp.MustCompile(`\d+\.\d+`)
	validSym       = regexp.MustCompile(`^[A-Z]{1,6}$`)
)

// Extract scans body for an action, a symbol and a price. It returns nil only
// when no BUY/SELL token is present at all; a partial result is still returned
// so the caller can log what was seen, but it will not pass Actionable.
//
// A "Symbol:"/"Price:" label wins over a bare token, and the action word
// itself never counts as the symbol. Otherwise first match wins.
func Extract(body string) *Signal {
	am := actionRe.FindStringSubmatch(strings.ToUpper(body))
	if am == nil {
		return nil
	}
	s := &Signal{Action: Action(am[1])}

	if sm := labeledSymRe.FindStringSubmatch(body); sm != nil {
		s.Symbol = sm[1]
	} else {
		for _, run := range bareSymRe.FindAllString(body, -1) {
			if run == string(Buy) || run == string(Sell) {
				continue
			}
			s.Symbol = run
			break
		}
	}

	var raw string
	if pm := labeledPriceRe.FindStringSubmatch(body); pm != nil {
		raw = pm[1]
	} else {
		raw = barePriceRe.FindString(body)
	}
	if raw != "" {
		// the pattern only admits digit runs, so ParseFloat cannot fail
		s.Price, _ = strconv.ParseFloat(raw, 64)
	}
	return s
}

// Actionable reports whether the signal is complete enough to forward.
func (s *Signal) Actionable() bool {
	if s == nil {
		return false
	}
	if s.Action != Buy && s.Action != Sell {
		return false
	}
	if !validSym.MatchString(s.Symbol) {
		return false
	}
	return s.Price > 0
}
