package dashboard

import (
	"math"
	"strings"

	"covid_tracker/internal/covid"
	"covid_tracker/internal/viewstate"
)

// statStyle 把指标映射到卡片标题、配色和地图圆圈大小
type statStyle struct {
	Title      string
	Hex        string
	Multiplier float64
	Red        bool
}

var statStyles = map[covid.Statistic]statStyle{
	covid.StatCases:     {Title: "Corona Virus Cases", Hex: "#CC1034", Multiplier: 800, Red: true},
	covid.StatRecovered: {Title: "Corona Virus Recovered", Hex: "#7dd71d", Multiplier: 1200, Red: false},
	covid.StatDeaths:    {Title: "Corona Virus Deaths", Hex: "#fb4443", Multiplier: 2000, Red: true},
}

func styleFor(stat covid.Statistic) statStyle {
	if style, ok := statStyles[stat]; ok {
		return style
	}
	return statStyles[covid.StatCases]
}

type InfoCard struct {
	Statistic  covid.Statistic `json:"statistic"`
	Title      string          `json:"title"`
	Today      string          `json:"today"`
	Total      string          `json:"total"`
	Active     bool            `json:"active"`
	Class      string          `json:"class"`
	CasesClass string          `json:"cases_class"`
}

func buildCards(s viewstate.ViewState) []InfoCard {
	cards := make([]InfoCard, 0, len(covid.Statistics))
	for _, stat := range covid.Statistics {
		style := styleFor(stat)

		var today, total *int64
		if s.Current != nil {
			t, n := stat.Today(*s.Current), stat.Total(*s.Current)
			today, total = &t, &n
		}

		active := s.SelectedStatistic == stat
		cards = append(cards, InfoCard{
			Statistic:  stat,
			Title:      style.Title,
			Today:      covid.FormatCount(today),
			Total:      covid.FormatCount(total),
			Active:     active,
			Class:      cardClass(active, style.Red),
			CasesClass: casesClass(style.Red),
		})
	}
	return cards
}

func cardClass(active, red bool) string {
	classes := []string{"infoBox"}
	if active {
		classes = append(classes, "infoBox--selected")
	}
	if red {
		classes = append(classes, "infoBox--selected-red")
	}
	return strings.Join(classes, " ")
}

func casesClass(red bool) string {
	if red {
		return "infoBox__cases"
	}
	return "infoBox__cases infoBox-font-green"
}

type TableRow struct {
	Name      string `json:"name"`
	Cases     int64  `json:"cases"`
	CasesText string `json:"cases_text"`
}

func buildTable(records []covid.CountryRecord) []TableRow {
	rows := make([]TableRow, 0, len(records))
	for _, r := range records {
		cases := r.Cases
		rows = append(rows, TableRow{Name: r.Country, Cases: cases, CasesText: covid.FormatCount(&cases)})
	}
	return rows
}

type MapMarker struct {
	Country   string  `json:"country"`
	Code      string  `json:"code"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Radius    float64 `json:"radius"`
	Color     string  `json:"color"`
	Cases     string  `json:"cases"`
	Recovered string  `json:"recovered"`
	Deaths    string  `json:"deaths"`
}

type MapView struct {
	Center    viewstate.LatLng `json:"center"`
	Zoom      int              `json:"zoom"`
	CasesType covid.Statistic  `json:"casesType"`
	Markers   []MapMarker      `json:"markers"`
}

// buildMap 圆圈半径 = sqrt(指标值) * 倍数
func buildMap(s viewstate.ViewState) MapView {
	style := styleFor(s.SelectedStatistic)
	markers := make([]MapMarker, 0, len(s.MapCountries))
	for _, r := range s.MapCountries {
		if r.CountryInfo == nil {
			continue
		}
		cases, recovered, deaths := r.Cases, r.Recovered, r.Deaths
		markers = append(markers, MapMarker{
			Country:   r.Country,
			Code:      r.CountryInfo.ISO2,
			Lat:       r.CountryInfo.Lat,
			Lng:       r.CountryInfo.Long,
			Radius:    math.Sqrt(float64(s.SelectedStatistic.Total(r))) * style.Multiplier,
			Color:     style.Hex,
			Cases:     covid.FormatCount(&cases),
			Recovered: covid.FormatCount(&recovered),
			Deaths:    covid.FormatCount(&deaths),
		})
	}
	return MapView{
		Center:    s.MapCenter,
		Zoom:      s.MapZoom,
		CasesType: s.SelectedStatistic,
		Markers:   markers,
	}
}

// countryOptions 在列表最前面加上 Worldwide
func countryOptions(s viewstate.ViewState) []covid.CountryOption {
	options := make([]covid.CountryOption, 0, len(s.Countries)+1)
	options = append(options, covid.CountryOption{DisplayName: "Worldwide", Code: covid.WorldwideCode})
	return append(options, s.Countries...)
}

type StateResponse struct {
	State      viewstate.ViewState `json:"state"`
	Phase      viewstate.Phase     `json:"phase"`
	Cards      []InfoCard          `json:"cards"`
	ChartTitle string              `json:"chart_title"`
}

func buildStateResponse(s viewstate.ViewState) StateResponse {
	return StateResponse{
		State:      s,
		Phase:      s.Phase(),
		Cards:      buildCards(s),
		ChartTitle: "Worldwide " + s.SelectedStatistic.Title(),
	}
}
