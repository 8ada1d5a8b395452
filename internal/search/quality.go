package search

import "strings"

// Quality is a coarse video-quality tier inferred from a raw name.
type Quality string

const (
	Quality4K      Quality = "4K"
	Quality1080p   Quality = "1080p"
	Quality1080i   Quality = "1080i"
	Quality720p    Quality = "720p"
	QualityUnknown Quality = "unknown"
)

// qualityKeywords maps tiers to their markers, in detection order.
// Order matters: "uhd" must be claimed by 4K before the bare "hd"
// marker of 720p can see it, and likewise "fhd" by 1080p.
var qualityKeywords = []struct {
	tier     Quality
	keywords []string
}{
	{Quality4K, []string{"2160p", "4k", "uhd"}},
	{Quality1080p, []string{"1080p", "fhd"}},
	{Quality1080i, []string{"1080i"}},
	{Quality720p, []string{"720p", "hd"}},
}

// ClassifyQuality scans a raw torrent name for known quality markers
// and returns the matching tier, or QualityUnknown.
func ClassifyQuality(rawName string) Quality {
	lower := strings.ToLower(rawName)
	for _, entry := range qualityKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.tier
			}
		}
	}
	return QualityUnknown
}
