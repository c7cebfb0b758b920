package feed

import (
	"slices"

	"tera/internal/models"
)

// Diversify reorders posts so that, while alternatives remain, no author
// repeats within window consecutive picks. It walks the list greedily: the
// first remaining post whose author is not among the last window authors
// wins, otherwise the front of the list is taken. The result is always a
// permutation of posts.
func Diversify(posts []models.RankedPost, window int) []models.RankedPost {
	if window <= 0 || len(posts) <= window {
		return slices.Clone(posts)
	}

	remaining := slices.Clone(posts)
	out := make([]models.RankedPost, 0, len(posts))
	recent := make([]string, 0, window+1)

	for len(remaining) > 0 {
		pick := 0
		for i, p := range remaining {
			if !slices.Contains(recent, p.Author.ID) {
				pick = i
				break
			}
		}

		chosen := remaining[pick]
		remaining = slices.Delete(remaining, pick, pick+1)
		out = append(out, chosen)

		recent = append(recent, chosen.Author.ID)
		if len(recent) > window {
			recent = recent[1:]
		}
	}
	return out
}
