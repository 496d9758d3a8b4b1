package covid

import "emperror.dev/errors"

// WorldwideCode 是国家选择器中代表"全球"的保留值
const WorldwideCode = "worldwide"

type CountryInfo struct {
	ISO2 string  `json:"iso2"`
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// CountryRecord 是上游返回的单个国家快照，取到后不再修改
type CountryRecord struct {
	Country        string       `json:"country"`
	CountryInfo    *CountryInfo `json:"countryInfo,omitempty"`
	Cases          int64        `json:"cases"`
	TodayCases     int64        `json:"todayCases"`
	Recovered      int64        `json:"recovered"`
	TodayRecovered int64        `json:"todayRecovered"`
	Deaths         int64        `json:"deaths"`
	TodayDeaths    int64        `json:"todayDeaths"`
}

// ISOCode returns the iso2 code, or "" when the record has no countryInfo.
func (r CountryRecord) ISOCode() string {
	if r.CountryInfo == nil {
		return ""
	}
	return r.CountryInfo.ISO2
}

// AggregateRecord 与 CountryRecord 同形，表示全球或某个国家的汇总
type AggregateRecord = CountryRecord

type CountryOption struct {
	DisplayName string `json:"name"`
	Code        string `json:"value"`
}

type Statistic string

const (
	StatCases     Statistic = "cases"
	StatRecovered Statistic = "recovered"
	StatDeaths    Statistic = "deaths"
)

const ErrUnknownStatistic = errors.Sentinel("unknown statistic")

// Statistics lists the selectable statistics in display order.
var Statistics = []Statistic{StatCases, StatRecovered, StatDeaths}

func ParseStatistic(raw string) (Statistic, error) {
	switch s := Statistic(raw); s {
	case StatCases, StatRecovered, StatDeaths:
		return s, nil
	}
	return "", errors.WithDetails(ErrUnknownStatistic, "statistic", raw)
}

// Title 返回首字母大写的名称，用于 "Worldwide Cases" 这类标题
func (s Statistic) Title() string {
	switch s {
	case StatCases:
		return "Cases"
	case StatRecovered:
		return "Recovered"
	case StatDeaths:
		return "Deaths"
	}
	return string(s)
}

// Total 返回记录中该指标的累计值
func (s Statistic) Total(r CountryRecord) int64 {
	switch s {
	case StatRecovered:
		return r.Recovered
	case StatDeaths:
		return r.Deaths
	}
	return r.Cases
}

// Today 返回记录中该指标的当日新增
func (s Statistic) Today(r CountryRecord) int64 {
	switch s {
	case StatRecovered:
		return r.TodayRecovered
	case StatDeaths:
		return r.TodayDeaths
	}
	return r.TodayCases
}

// Timeline 对应 historical 接口，键为 "1/22/20" 格式的日期
type Timeline struct {
	Cases     map[string]int64 `json:"cases"`
	Deaths    map[string]int64 `json:"deaths"`
	Recovered map[string]int64 `json:"recovered"`
}

func (t Timeline) series(s Statistic) map[string]int64 {
	switch s {
	case StatRecovered:
		return t.Recovered
	case StatDeaths:
		return t.Deaths
	}
	return t.Cases
}

type ChartPoint struct {
	X string `json:"x"`
	Y int64  `json:"y"`
}
