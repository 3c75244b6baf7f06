package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// StrategyNameHashLength is the length of the strategy prefix in a
// customer order ref.
const StrategyNameHashLength = 13

const customerOrderRefSep = "I"

// NameHash returns the short stable hash of a strategy name.
func NameHash(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])[:StrategyNameHashLength]
}

// CustomerOrderRef builds the reference sent to the venue so that responses
// can be correlated without a server round trip.
func CustomerOrderRef(nameHash, orderID string) string {
	return nameHash + customerOrderRefSep + orderID
}

// ParseCustomerOrderRef splits a reference built by CustomerOrderRef.
func ParseCustomerOrderRef(ref string) (nameHash, orderID string, err error) {
	if len(ref) <= StrategyNameHashLength+1 || !strings.HasPrefix(ref[StrategyNameHashLength:], customerOrderRefSep) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCustomerRef, ref)
	}
	return ref[:StrategyNameHashLength], ref[StrategyNameHashLength+1:], nil
}
