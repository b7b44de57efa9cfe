package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const maxOperand = 10

// Challenge is an arithmetic anti-automation check. A challenge is single use:
// callers discard it after any login attempt and issue a new one.
type Challenge struct {
	Left  int
	Right int
}

// NewChallenge issues a challenge with operands in 1..10.
func NewChallenge() Challenge {
	return Challenge{Left: operand(), Right: operand()}
}

// Answer is the value a caller must echo back.
func (c Challenge) Answer() int {
	return c.Left + c.Right
}

// Question renders the prompt, e.g. "3 + 7 = ?".
func (c Challenge) Question() string {
	return fmt.Sprintf("%d + %d = ?", c.Left, c.Right)
}

func operand() int {
	n, err := rand.Int(rand.Reader, big.NewInt(maxOperand))
	if err != nil {
		return maxOperand
	}
	return int(n.Int64()) + 1
}
