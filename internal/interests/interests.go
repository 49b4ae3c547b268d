// Package interests holds the static interest-category taxonomy served by the
// API and used to normalize free-text interests from requests.
package interests

import "strings"

// Category is one entry of the taxonomy.
type Category struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
}

var Taxonomy = []Category{
	{ID: "live-music", Label: "Live Music", Keywords: []string{"music", "concert", "gig", "jazz", "band", "dj"}},
	{ID: "food-drink", Label: "Food & Drink", Keywords: []string{"food", "tasting", "wine", "beer", "market", "supper club"}},
	{ID: "arts-culture", Label: "Arts & Culture", Keywords: []string{"art", "gallery", "exhibition", "theatre", "museum"}},
	{ID: "outdoors", Label: "Outdoors", Keywords: []string{"hike", "walk", "park", "cycling", "kayak"}},
	{ID: "workshops", Label: "Workshops & Classes", Keywords: []string{"workshop", "class", "course", "craft", "cooking class"}},
	{ID: "nightlife", Label: "Nightlife", Keywords: []string{"club", "bar", "comedy", "late night"}},
	{ID: "sports", Label: "Sports & Fitness", Keywords: []string{"match", "game", "run", "yoga", "fitness"}},
	{ID: "tech", Label: "Tech & Startups", Keywords: []string{"meetup", "hackathon", "talk", "conference"}},
	{ID: "family", Label: "Family & Kids", Keywords: []string{"kids", "family", "children", "storytime"}},
	{ID: "wellness", Label: "Wellness", Keywords: []string{"meditation", "spa", "retreat", "sound bath"}},
}

// Split parses the comma-separated interests field of a request into a
// cleaned, deduplicated list.
func Split(raw string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		interest := strings.ToLower(strings.TrimSpace(part))
		if interest == "" {
			continue
		}
		if _, dup := seen[interest]; dup {
			continue
		}
		seen[interest] = struct{}{}
		out = append(out, interest)
	}
	return out
}
