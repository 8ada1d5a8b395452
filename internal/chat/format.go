package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/seekarr/seekarr/internal/media"
	"github.com/seekarr/seekarr/internal/search"
	"github.com/seekarr/seekarr/internal/torrent"
)

// etaCap is where remaining-time estimates stop being meaningful.
const etaCap = 365 * 24 * time.Hour

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count as a human-readable size, e.g.
// "1.50 GB".
func FormatSize(bytes int64) string {
	value := float64(bytes)
	unit := sizeUnits[0]
	for _, u := range sizeUnits[1:] {
		if value < 1024 {
			break
		}
		value /= 1024
		unit = u
	}
	return fmt.Sprintf("%.2f %s", value, unit)
}

// FormatSpeed renders a transfer rate in bytes per second.
func FormatSpeed(bytesPerSecond int64) string {
	return FormatSize(bytesPerSecond) + "/s"
}

// FormatProgress renders a 0..1 fraction as a percentage.
func FormatProgress(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// FormatETA renders an estimated remaining time. Negative and
// absurdly large estimates render as infinity.
func FormatETA(remaining time.Duration) string {
	if remaining < 0 || remaining >= etaCap {
		return "∞"
	}
	total := int64(remaining.Seconds())
	hours := total / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%dh %dm %ds left", hours, minutes, seconds)
}

// ResultLabel is the button caption for one ranked torrent result.
func ResultLabel(r search.RankedResult) string {
	quality := string(r.Quality)
	if r.Quality == search.QualityUnknown {
		quality = "?"
	}
	size := r.Size
	if size == "" {
		size = "?"
	}
	return fmt.Sprintf("%s | %s | ⬆️%d ⬇️%d", quality, size, r.Seeds, r.Peers)
}

// MediaCaption is the one-line header for a selected media item, e.g.
// "Сериал: Во все тяжкие (2008)".
func MediaCaption(d *media.Description) string {
	kind := "Фильм"
	if d.Series {
		kind = "Сериал"
	}
	return fmt.Sprintf("%s: %s", kind, d.Label())
}

// SeasonLabel is the button caption for one season.
func SeasonLabel(number, year int) string {
	if year > 0 {
		return fmt.Sprintf("Сезон %d (%d)", number, year)
	}
	return fmt.Sprintf("Сезон %d", number)
}

// DetailText renders a torrent detail page as a chat message.
func DetailText(d *torrent.Detail) string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	if d.Year != "" {
		sb.WriteString(fmt.Sprintf("\nГод выпуска: %s", d.Year))
	}
	if len(d.Genres) > 0 {
		sb.WriteString(fmt.Sprintf("\nЖанр: %s", strings.Join(d.Genres, ", ")))
	}
	if d.Director != "" {
		sb.WriteString(fmt.Sprintf("\nРежиссер: %s", d.Director))
	}
	if len(d.Actors) > 0 {
		sb.WriteString(fmt.Sprintf("\nВ ролях: %s", strings.Join(d.Actors, ", ")))
	}
	if d.Ratings.IMDB != "" {
		sb.WriteString(fmt.Sprintf("\nIMDb: %s", d.Ratings.IMDB))
	}
	if d.Ratings.Kinopoisk != "" {
		sb.WriteString(fmt.Sprintf("\nКинопоиск: %s", d.Ratings.Kinopoisk))
	}
	if len(d.Attributes) > 0 {
		sb.WriteString("\n")
		for _, attr := range d.Attributes {
			if attr.Value == "" {
				sb.WriteString(fmt.Sprintf("\n%s", attr.Key))
				continue
			}
			sb.WriteString(fmt.Sprintf("\n%s: %s", attr.Key, attr.Value))
		}
	}
	return sb.String()
}
