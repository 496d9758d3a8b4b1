// Package upstream talks to the disease.sh statistics API.
package upstream

import (
	"context"
	"net/http"
	"net/url"

	"covid_tracker/internal/covid"

	"github.com/dghubble/sling"
	"github.com/sirupsen/logrus"
)

const (
	pathGlobal     = "v3/covid-19/all"
	pathCountries  = "v3/covid-19/countries"
	pathHistorical = "v3/covid-19/historical/all"
)

var logger = logrus.WithField("pkg", "upstream")

type Client struct {
	base *sling.Sling
}

// New 创建上游客户端，baseURL 需以 / 结尾
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		base: sling.New().Client(httpClient).Base(baseURL).Set("Accept", "application/json"),
	}
}

// Global fetches the worldwide aggregate.
func (c *Client) Global(ctx context.Context) (covid.AggregateRecord, error) {
	var rec covid.AggregateRecord
	if err := c.get(ctx, pathGlobal, nil, &rec); err != nil {
		return covid.AggregateRecord{}, err
	}
	return rec, nil
}

// Countries fetches the per-country list. Every element must carry countryInfo.
func (c *Client) Countries(ctx context.Context) ([]covid.CountryRecord, error) {
	var records []covid.CountryRecord
	if err := c.get(ctx, pathCountries, nil, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.CountryInfo == nil {
			return nil, &Error{Kind: KindShape, Endpoint: pathCountries, Message: "countryInfo missing for " + r.Country}
		}
	}
	return records, nil
}

// Country fetches one country's aggregate by iso2 code.
func (c *Client) Country(ctx context.Context, code string) (covid.AggregateRecord, error) {
	path := pathCountries + "/" + url.PathEscape(code)

	var rec covid.AggregateRecord
	if err := c.get(ctx, path, nil, &rec); err != nil {
		return covid.AggregateRecord{}, err
	}
	if rec.CountryInfo == nil {
		return covid.AggregateRecord{}, &Error{Kind: KindShape, Endpoint: path, Message: "countryInfo missing"}
	}
	return rec, nil
}

type historicalParams struct {
	LastDays int `url:"lastdays"`
}

// Historical fetches worldwide cumulative totals for the last lastDays days.
func (c *Client) Historical(ctx context.Context, lastDays int) (covid.Timeline, error) {
	var timeline covid.Timeline
	if err := c.get(ctx, pathHistorical, &historicalParams{LastDays: lastDays}, &timeline); err != nil {
		return covid.Timeline{}, err
	}
	return timeline, nil
}

func (c *Client) get(ctx context.Context, path string, params interface{}, out interface{}) error {
	s := c.base.New().Get(path)
	if params != nil {
		s = s.QueryStruct(params)
	}
	req, err := s.Request()
	if err != nil {
		return &Error{Kind: KindNetwork, Endpoint: path, Err: err}
	}

	logger.WithField("endpoint", path).Debug("upstream request")

	var failure apiError
	resp, err := c.base.Do(req.WithContext(ctx), out, &failure)
	if resp == nil {
		return &Error{Kind: KindNetwork, Endpoint: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindStatus, Endpoint: path, Status: resp.StatusCode, Message: failure.Message}
	}
	if err != nil {
		return &Error{Kind: KindParse, Endpoint: path, Err: err}
	}
	// sling 对空响应体不做解码，直接当成功返回
	if resp.ContentLength == 0 || resp.StatusCode == http.StatusNoContent {
		return &Error{Kind: KindParse, Endpoint: path, Status: resp.StatusCode, Message: "empty response body"}
	}
	return nil
}
