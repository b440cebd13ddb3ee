package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the outcome of a keyed purchase so that a retried
// request replays it instead of charging twice. ResponseJSON is empty until
// the claiming transaction completes it.
type IdempotencyLog struct {
	Key          string    `json:"key"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	RequestHash  string    `json:"request_hash"`
	ResponseJSON []byte    `json:"response_json"` // encoded []PurchaseRecord
	CreatedAt    time.Time `json:"created_at"`
}

// BuildPurchaseIdempotencyKey scopes a client-supplied key to the buyer.
func BuildPurchaseIdempotencyKey(buyerID uuid.UUID, clientKey string) string {
	return "purchase:" + buyerID.String() + ":" + clientKey
}

// OrderLine is one listing and quantity of a purchase request.
type OrderLine struct {
	ListingID uuid.UUID
	Quantity  int
}

// PurchaseFingerprint hashes what a keyed request asks for, so a key reused
// for a different order can be told apart from a retry. Line order does not
// matter.
func PurchaseFingerprint(basket bool, payCurrency Currency, lines []OrderLine) string {
	sorted := slices.Clone(lines)
	slices.SortFunc(sorted, func(a, b OrderLine) int { return CompareUUID(a.ListingID, b.ListingID) })

	var b strings.Builder
	if basket {
		b.WriteString("basket")
	} else {
		b.WriteString("single")
	}
	b.WriteString("|" + string(payCurrency))
	for _, l := range sorted {
		b.WriteString("|" + l.ListingID.String() + "x" + strconv.Itoa(l.Quantity))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
