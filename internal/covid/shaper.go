package covid

import (
	"sort"
	"time"

	"emperror.dev/errors"
	"github.com/dustin/go-humanize"
)

// SortByCaseCountDescending returns a new slice ordered by Cases, highest
// first. Records with equal case counts keep their input order.
func SortByCaseCountDescending(records []CountryRecord) []CountryRecord {
	sorted := make([]CountryRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cases > sorted[j].Cases
	})
	return sorted
}

// ToCountryOptions maps records 1:1 to selector options, keeping input order.
func ToCountryOptions(records []CountryRecord) []CountryOption {
	options := make([]CountryOption, 0, len(records))
	for _, r := range records {
		options = append(options, CountryOption{
			DisplayName: r.Country,
			Code:        r.ISOCode(),
		})
	}
	return options
}

// FormatCount 返回带千分位的整数字符串，nil 返回 "0"
func FormatCount(n *int64) string {
	if n == nil {
		return "0"
	}
	return humanize.Comma(*n)
}

const timelineLayout = "1/2/06"

// BuildChartSeries turns cumulative totals into day-over-day deltas for the
// chosen statistic. The first day has no predecessor and is dropped, as is
// any day that follows a zero total.
func BuildChartSeries(t Timeline, stat Statistic) ([]ChartPoint, error) {
	series := t.series(stat)

	type day struct {
		key   string
		at    time.Time
		total int64
	}
	days := make([]day, 0, len(series))
	for key, total := range series {
		at, err := time.Parse(timelineLayout, key)
		if err != nil {
			return nil, errors.WrapIfWithDetails(err, "parse timeline date", "date", key)
		}
		days = append(days, day{key: key, at: at, total: total})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].at.Before(days[j].at) })

	points := make([]ChartPoint, 0, len(days))
	var last int64
	for _, d := range days {
		if last != 0 {
			points = append(points, ChartPoint{X: d.key, Y: d.total - last})
		}
		last = d.total
	}
	return points, nil
}
