package viewstate

import (
	"slices"

	"covid_tracker/internal/covid"
	"covid_tracker/internal/upstream"
)

// Event is anything Reduce knows how to apply.
type Event interface {
	isEvent()
}

// GlobalLoaded 启动时全球汇总请求返回
type GlobalLoaded struct {
	Record covid.AggregateRecord
}

// CountriesLoaded 启动时国家列表请求返回
type CountriesLoaded struct {
	Records []covid.CountryRecord
}

// SelectionStarted 用户选择国家，请求发出之前
type SelectionStarted struct {
	Code string
}

// SelectionResolved 国家选择的请求返回
type SelectionResolved struct {
	Code   string
	Record covid.AggregateRecord
}

type StatisticSelected struct {
	Statistic covid.Statistic
}

// FetchFailed 任意请求失败
type FetchFailed struct {
	Source Source
	Code   string
	Err    error
}

func (GlobalLoaded) isEvent()      {}
func (CountriesLoaded) isEvent()   {}
func (SelectionStarted) isEvent()  {}
func (SelectionResolved) isEvent() {}
func (StatisticSelected) isEvent() {}
func (FetchFailed) isEvent()       {}

// Reduce applies ev to s and returns the next state. It never mutates s.
func Reduce(s ViewState, ev Event) ViewState {
	switch ev := ev.(type) {
	case GlobalLoaded:
		rec := ev.Record
		s.Current = &rec
		s.Loading = true
		s.Failures = clearFailures(s.Failures, SourceGlobal)

	case CountriesLoaded:
		s.Countries = covid.ToCountryOptions(ev.Records)
		s.Table = covid.SortByCaseCountDescending(ev.Records)
		s.MapCountries = append([]covid.CountryRecord(nil), ev.Records...)
		s.Failures = clearFailures(s.Failures, SourceCountries)

	case SelectionStarted:
		s.Loading = false
		s.Failures = clearFailures(s.Failures, SourceGlobal, SourceSelection)

	case SelectionResolved:
		rec := ev.Record
		s.SelectedCountryCode = ev.Code
		s.Current = &rec
		s.Loading = true
		s.MapCenter = centerFor(ev.Code, rec)
		// 全球重新选择同样使用 4，保持原有行为
		s.MapZoom = SelectionZoom
		s.Failures = clearFailures(s.Failures, SourceGlobal, SourceSelection)

	case StatisticSelected:
		s.SelectedStatistic = ev.Statistic

	case FetchFailed:
		f := Failure{
			Kind:   string(upstream.KindOf(ev.Err)),
			Source: ev.Source,
			Code:   ev.Code,
		}
		if ev.Err != nil {
			f.Message = ev.Err.Error()
		}
		s.Failures = setFailure(s.Failures, f)
	}
	return s
}

func centerFor(code string, rec covid.AggregateRecord) LatLng {
	if code == covid.WorldwideCode || rec.CountryInfo == nil {
		return FallbackCenter
	}
	return LatLng{Lat: rec.CountryInfo.Lat, Lng: rec.CountryInfo.Long}
}

// clearFailures returns fs without the failures from sources. A failed country
// list stays recorded until the list itself loads. fs is never modified.
func clearFailures(fs []Failure, sources ...Source) []Failure {
	var out []Failure
	for _, f := range fs {
		if !slices.Contains(sources, f.Source) {
			out = append(out, f)
		}
	}
	return out
}

// setFailure 记录 f，替换同一来源的旧记录，其他来源保持不变
func setFailure(fs []Failure, f Failure) []Failure {
	var out []Failure
	for _, src := range sourceOrder {
		if src == f.Source {
			out = append(out, f)
			continue
		}
		for _, existing := range fs {
			if existing.Source == src {
				out = append(out, existing)
			}
		}
	}
	return out
}
