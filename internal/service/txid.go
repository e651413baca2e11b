package service

import (
	"fmt"

	"github.com/google/uuid"
)

// newTransactionID builds a ledger transaction reference like
// "WD-2f1c…". The prefix identifies the originating flow in exports and
// support tooling.
func newTransactionID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
