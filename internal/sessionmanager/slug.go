package sessionmanager

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var slugAdjectives = []string{
	"calm", "brave", "quiet", "bold", "swift", "bright", "sharp", "steady",
	"quick", "gentle", "clever", "eager", "fresh", "keen", "lucky", "vivid",
}

var slugNouns = []string{
	"otter", "falcon", "maple", "ember", "comet", "harbor", "willow", "lynx",
	"canyon", "meadow", "ridge", "heron", "basil", "cinder", "granite", "tide",
}

func randomIndex(n int) int {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// generateSlug produces an adjective-noun candidate, or adjective-noun-n if
// exists(candidate) reports a collision (spec.md §4.6 "generate a
// server-side slug").
func generateSlug(exists func(string) bool) string {
	base := fmt.Sprintf("%s-%s", slugAdjectives[randomIndex(len(slugAdjectives))], slugNouns[randomIndex(len(slugNouns))])
	if !exists(base) {
		return base
	}
	for n := 2; n < 1000; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !exists(candidate) {
			return candidate
		}
	}
	return base
}
