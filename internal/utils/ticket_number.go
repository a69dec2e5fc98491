package utils

import (
    "crypto/rand"
    "fmt"
    "math/big"
)

// ticketNumberDigits is the length of the random numeric part of a
// ticket number.  Twelve digits keep collisions negligible while
// staying short enough for manual entry at the door.
const ticketNumberDigits = 12

// NewTicketNumber returns a fresh ticket number of the form
// TKT-############ using cryptographically secure randomness.  The
// tickets table enforces global uniqueness; the astronomically rare
// collision surfaces as a conflict and the purchase is retried by the
// client.
func NewTicketNumber() (string, error) {
    digits := make([]byte, ticketNumberDigits)
    for i := range digits {
        n, err := rand.Int(rand.Reader, big.NewInt(10))
        if err != nil {
            return "", err
        }
        digits[i] = byte('0' + n.Int64())
    }
    return fmt.Sprintf("TKT-%s", digits), nil
}
