package auth

import (
	"github.com/nbutton23/zxcvbn-go"
)

// StrengthReport summarises a zxcvbn estimate.
type StrengthReport struct {
	Score     int // 0 (weakest) to 4
	Entropy   float64
	CrackTime string
}

// Strength estimates how hard pw is to guess.
func Strength(pw string, userInputs ...string) StrengthReport {
	m := zxcvbn.PasswordStrength(pw, userInputs)
	return StrengthReport{
		Score:     m.Score,
		Entropy:   m.Entropy,
		CrackTime: m.CrackTimeDisplay,
	}
}

// Label returns a short human description of the score.
func (r StrengthReport) Label() string {
	switch r.Score {
	case 0:
		return "very weak"
	case 1:
		return "weak"
	case 2:
		return "fair"
	case 3:
		return "strong"
	default:
		return "very strong"
	}
}
