// Package viewstate owns the dashboard's view state and the rules that move it.
package viewstate

import (
	"covid_tracker/internal/covid"
)

const (
	DefaultZoom   = 3
	SelectionZoom = 4
)

// FallbackCenter 是全球视图的地图中心
var FallbackCenter = LatLng{Lat: 38.9637, Lng: 35.2433}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseErrored Phase = "errored"
)

// Source names the request a failure came from.
type Source string

const (
	SourceGlobal    Source = "global"
	SourceCountries Source = "countries"
	SourceSelection Source = "selection"
)

// sourceOrder 决定 Failures 的排列顺序
var sourceOrder = []Source{SourceGlobal, SourceCountries, SourceSelection}

type Failure struct {
	Kind    string `json:"kind"`
	Source  Source `json:"source"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ViewState 是界面渲染的全部输入。
// 注意 Loading 的语义与直觉相反：true 表示数据已就绪，false 表示请求进行中。
type ViewState struct {
	SelectedCountryCode string                 `json:"selected_country"`
	SelectedStatistic   covid.Statistic        `json:"selected_statistic"`
	Current             *covid.AggregateRecord `json:"current"`
	Loading             bool                   `json:"loading"`
	MapCenter           LatLng                 `json:"map_center"`
	MapZoom             int                    `json:"map_zoom"`

	Countries    []covid.CountryOption `json:"countries"`
	Table        []covid.CountryRecord `json:"table"`
	MapCountries []covid.CountryRecord `json:"map_countries"`

	// 每个来源最多一条失败记录，按 sourceOrder 排列
	Failures []Failure `json:"failures,omitempty"`
}

// Initial returns the startup defaults.
func Initial() ViewState {
	return ViewState{
		SelectedCountryCode: covid.WorldwideCode,
		SelectedStatistic:   covid.StatCases,
		MapCenter:           FallbackCenter,
		MapZoom:             DefaultZoom,
		Countries:           []covid.CountryOption{},
		Table:               []covid.CountryRecord{},
		MapCountries:        []covid.CountryRecord{},
	}
}

func (s ViewState) Phase() Phase {
	switch {
	case len(s.Failures) > 0:
		return PhaseErrored
	case !s.Loading:
		return PhaseLoading
	}
	return PhaseIdle
}

// FailureFor returns the recorded failure for src, or nil.
func (s ViewState) FailureFor(src Source) *Failure {
	for i := range s.Failures {
		if s.Failures[i].Source == src {
			f := s.Failures[i]
			return &f
		}
	}
	return nil
}
