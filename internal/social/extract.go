package social

import (
	"regexp"

	"github.com/unweightedai/kol-trust-service/internal/chain"
)

var addressCandidatePattern = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

// ExtractTokenAddresses pulls candidate Solana token addresses out of
// post text, deduplicated in order of first appearance.
func ExtractTokenAddresses(text string) []string {
	candidates := addressCandidatePattern.FindAllString(text, -1)
	if len(candidates) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(candidates))
	var addresses []string
	for _, candidate := range candidates {
		if seen[candidate] || !chain.IsAddress(candidate) {
			continue
		}
		seen[candidate] = true
		addresses = append(addresses, candidate)
	}
	return addresses
}

// AverageEngagement computes the weighted engagement average over a
// set of posts: replies count 3x and reposts 2x relative to likes.
func AverageEngagement(posts []Post) float64 {
	if len(posts) == 0 {
		return 0
	}

	total := 0
	for _, p := range posts {
		total += p.Likes + p.Reposts*2 + p.Replies*3
	}
	return float64(total) / float64(len(posts))
}
