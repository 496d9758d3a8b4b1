package viewstate

import (
	"testing"

	"covid_tracker/internal/covid"
	"covid_tracker/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countryRecord(name, iso string, lat, long float64, cases int64) covid.CountryRecord {
	return covid.CountryRecord{
		Country:     name,
		CountryInfo: &covid.CountryInfo{ISO2: iso, Lat: lat, Long: long},
		Cases:       cases,
	}
}

func TestInitialDefaults(t *testing.T) {
	s := Initial()
	assert.Equal(t, covid.WorldwideCode, s.SelectedCountryCode)
	assert.Equal(t, covid.StatCases, s.SelectedStatistic)
	assert.Equal(t, 3, s.MapZoom)
	assert.Equal(t, LatLng{Lat: 38.9637, Lng: 35.2433}, s.MapCenter)
	assert.False(t, s.Loading)
	assert.Nil(t, s.Current)
	assert.Equal(t, PhaseLoading, s.Phase())
}

func TestReduceGlobalLoaded(t *testing.T) {
	s := Reduce(Initial(), GlobalLoaded{Record: covid.AggregateRecord{Cases: 99}})
	require.NotNil(t, s.Current)
	assert.Equal(t, int64(99), s.Current.Cases)
	assert.True(t, s.Loading)
	assert.Equal(t, PhaseIdle, s.Phase())
	// 启动不改变地图视口
	assert.Equal(t, DefaultZoom, s.MapZoom)
	assert.Equal(t, FallbackCenter, s.MapCenter)
}

func TestReduceCountriesLoaded(t *testing.T) {
	records := []covid.CountryRecord{
		countryRecord("Aland", "AA", 0, 0, 10),
		countryRecord("Bland", "BB", 0, 0, 50),
		countryRecord("Cland", "CC", 0, 0, 30),
	}

	s := Reduce(Initial(), CountriesLoaded{Records: records})

	var tableCases []int64
	for _, r := range s.Table {
		tableCases = append(tableCases, r.Cases)
	}
	assert.Equal(t, []int64{50, 30, 10}, tableCases)

	var codes []string
	for _, o := range s.Countries {
		codes = append(codes, o.Code)
	}
	assert.Equal(t, []string{"AA", "BB", "CC"}, codes)
	assert.Equal(t, records, s.MapCountries)
	assert.Equal(t, "AA", records[0].ISOCode(), "input must not be reordered")
}

func TestReduceSelectionWorldwide(t *testing.T) {
	s := Reduce(Initial(), SelectionStarted{Code: covid.WorldwideCode})
	assert.False(t, s.Loading)

	s = Reduce(s, SelectionResolved{Code: covid.WorldwideCode, Record: covid.AggregateRecord{Cases: 5}})
	assert.Equal(t, LatLng{Lat: 38.9637, Lng: 35.2433}, s.MapCenter)
	assert.Equal(t, SelectionZoom, s.MapZoom)
	assert.True(t, s.Loading)
	assert.Equal(t, covid.WorldwideCode, s.SelectedCountryCode)
}

func TestReduceSelectionCountry(t *testing.T) {
	rec := countryRecord("Japan", "JP", 36, 138, 7)

	s := Reduce(Initial(), SelectionStarted{Code: "JP"})
	assert.Equal(t, PhaseLoading, s.Phase())
	// 选中代码在请求返回时才更新
	assert.Equal(t, covid.WorldwideCode, s.SelectedCountryCode)

	s = Reduce(s, SelectionResolved{Code: "JP", Record: rec})
	assert.Equal(t, LatLng{Lat: 36, Lng: 138}, s.MapCenter)
	assert.Equal(t, 4, s.MapZoom)
	assert.Equal(t, "JP", s.SelectedCountryCode)
	require.NotNil(t, s.Current)
	assert.Equal(t, "Japan", s.Current.Country)
	assert.True(t, s.Loading)
}

func TestReduceWorldwideReselectionKeepsZoom(t *testing.T) {
	s := Reduce(Initial(), SelectionResolved{Code: "JP", Record: countryRecord("Japan", "JP", 36, 138, 7)})
	s = Reduce(s, SelectionStarted{Code: covid.WorldwideCode})
	s = Reduce(s, SelectionResolved{Code: covid.WorldwideCode, Record: covid.AggregateRecord{}})
	assert.Equal(t, 4, s.MapZoom)
	assert.Equal(t, FallbackCenter, s.MapCenter)
}

func TestReduceStatisticSelected(t *testing.T) {
	before := Reduce(Initial(), SelectionStarted{Code: "JP"})
	after := Reduce(before, StatisticSelected{Statistic: covid.StatDeaths})
	assert.Equal(t, covid.StatDeaths, after.SelectedStatistic)
	assert.Equal(t, before.Loading, after.Loading)
	assert.Equal(t, covid.StatCases, before.SelectedStatistic)
}

func TestReduceFetchFailed(t *testing.T) {
	err := &upstream.Error{Kind: upstream.KindShape, Endpoint: "v3/covid-19/countries/XX"}
	s := Reduce(Reduce(Initial(), SelectionStarted{Code: "XX"}), FetchFailed{Source: SourceSelection, Code: "XX", Err: err})

	require.Len(t, s.Failures, 1)
	assert.Equal(t, "shape", s.Failures[0].Kind)
	assert.Equal(t, SourceSelection, s.Failures[0].Source)
	assert.Equal(t, "XX", s.Failures[0].Code)
	assert.Equal(t, PhaseErrored, s.Phase())
	assert.False(t, s.Loading)

	// 新的选择会清掉选择失败
	s = Reduce(s, SelectionStarted{Code: "JP"})
	assert.Empty(t, s.Failures)
	assert.Equal(t, PhaseLoading, s.Phase())
}

func TestReduceCountriesFailureSurvivesSelection(t *testing.T) {
	s := Reduce(Initial(), FetchFailed{Source: SourceCountries, Err: &upstream.Error{Kind: upstream.KindNetwork}})
	s = Reduce(s, SelectionStarted{Code: "JP"})
	s = Reduce(s, SelectionResolved{Code: "JP", Record: countryRecord("Japan", "JP", 36, 138, 7)})
	require.NotNil(t, s.FailureFor(SourceCountries))
	assert.Equal(t, PhaseErrored, s.Phase())

	s = Reduce(s, CountriesLoaded{Records: nil})
	assert.Empty(t, s.Failures)
}

func TestReduceCountriesFailureSurvivesLaterSelectionFailure(t *testing.T) {
	s := Reduce(Initial(), FetchFailed{Source: SourceCountries, Err: &upstream.Error{Kind: upstream.KindNetwork}})
	s = Reduce(s, SelectionStarted{Code: "XX"})
	s = Reduce(s, FetchFailed{Source: SourceSelection, Code: "XX", Err: &upstream.Error{Kind: upstream.KindStatus}})
	require.Len(t, s.Failures, 2)
	assert.Equal(t, SourceCountries, s.Failures[0].Source)
	assert.Equal(t, SourceSelection, s.Failures[1].Source)

	s = Reduce(s, SelectionStarted{Code: "JP"})
	s = Reduce(s, SelectionResolved{Code: "JP", Record: countryRecord("Japan", "JP", 36, 138, 7)})

	require.Len(t, s.Failures, 1)
	assert.Equal(t, SourceCountries, s.Failures[0].Source)
	assert.Empty(t, s.Table)
	assert.Equal(t, PhaseErrored, s.Phase())
}

func TestReduceBothStartupFailuresKept(t *testing.T) {
	s := Reduce(Initial(), FetchFailed{Source: SourceGlobal, Err: &upstream.Error{Kind: upstream.KindNetwork}})
	s = Reduce(s, FetchFailed{Source: SourceCountries, Err: &upstream.Error{Kind: upstream.KindParse}})
	require.Len(t, s.Failures, 2)

	s = Reduce(s, CountriesLoaded{Records: []covid.CountryRecord{countryRecord("Aland", "AA", 1, 1, 10)}})

	// 全球汇总仍未加载，必须保持错误状态
	require.NotNil(t, s.FailureFor(SourceGlobal))
	assert.Nil(t, s.FailureFor(SourceCountries))
	assert.Nil(t, s.Current)
	assert.Equal(t, PhaseErrored, s.Phase())
}

func TestReduceRepeatedFailureReplacesSameSource(t *testing.T) {
	s := Reduce(Initial(), FetchFailed{Source: SourceSelection, Code: "XX", Err: &upstream.Error{Kind: upstream.KindStatus}})
	before := s
	s = Reduce(s, FetchFailed{Source: SourceSelection, Code: "YY", Err: &upstream.Error{Kind: upstream.KindNetwork}})

	require.Len(t, s.Failures, 1)
	assert.Equal(t, "YY", s.Failures[0].Code)
	assert.Equal(t, "XX", before.Failures[0].Code, "earlier state must not change")
}
