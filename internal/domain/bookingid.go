package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	bookingSuffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	bookingSuffixLen      = 8
)

// nowMillis is swapped in tests to pin the timestamp bucket.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// NewBookingID returns a short human-facing booking identifier, e.g.
// "PB-MF2K31QZ-X7K2Q9F3". It combines the current millisecond timestamp in
// base 36 with a random base-36 suffix, so allocation needs no lock and no
// shared counter and tolerates unbounded concurrency. The suffix space
// (36^8, ~2.8e12 codes per millisecond bucket) keeps collisions negligible
// even under bursts; the store's unique constraint backstops the residual
// window and callers retry on ErrDuplicateBookingID.
func NewBookingID() string {
	var b strings.Builder
	b.WriteString("PB-")
	b.WriteString(strings.ToUpper(strconv.FormatInt(nowMillis(), 36)))
	b.WriteByte('-')
	for i := 0; i < bookingSuffixLen; i++ {
		b.WriteByte(bookingSuffixAlphabet[rand.IntN(len(bookingSuffixAlphabet))])
	}
	return b.String()
}
