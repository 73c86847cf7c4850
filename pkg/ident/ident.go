// Package ident produces opaque, collision-resistant identifiers for new
// records. Generation never fails: when the platform's secure random source
// is unavailable the generator falls back to a timestamp plus math/rand
// suffix, which stays unique enough for a single-process store.
package ident

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a new unique identifier.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

func fallbackID() string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	return fmt.Sprintf("%s-%09x-%05x", ts, rand.Int63n(1<<36), rand.Int63n(1<<20))
}
