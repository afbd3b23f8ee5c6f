package encoding

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Policy selects the codec family targeted for a job.
type Policy string

const (
	// Modern targets AV1.
	Modern Policy = "modern"
	// Legacy targets HEVC, or MJPEG for stills.
	Legacy Policy = "legacy"
)

// DefaultModernThreshold is the lowest client major version that decodes AV1.
const DefaultModernThreshold = 16

// PolicyForHint maps a client capability hint (an OS version such as "17.2")
// to a Policy. The component before the first dot must be all digits and
// is compared to threshold; anything else, including an empty hint or
// "17beta", yields Legacy. A component too large for an int is Modern.
func PolicyForHint(hint string, threshold int) Policy {
	major, ok := leadingInt(hint)
	if ok && major >= threshold {
		return Modern
	}
	return Legacy
}

func leadingInt(s string) (int, bool) {
	major, _, _ := strings.Cut(strings.TrimSpace(s), ".")
	major = strings.TrimSpace(major)
	if major == "" {
		return 0, false
	}
	for i := 0; i < len(major); i++ {
		if major[i] < '0' || major[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(major)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p Policy) String() string {
	return string(p)
}
