package util

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewPanicID returns "panic_<unix millis>_<9 base36 chars>". Uniqueness is
// probabilistic: 36^9 suffixes per millisecond.
func NewPanicID(now time.Time) string {
	var b strings.Builder
	b.Grow(32)
	b.WriteString("panic_")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	b.WriteString(RandomSuffix(9))
	return b.String()
}

func RandomSuffix(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = base36[rand.IntN(len(base36))]
	}
	return string(buf)
}

func NewMessageID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
