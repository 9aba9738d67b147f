package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

const (
	// DefaultBaseURL is the production FAS API endpoint
	DefaultBaseURL = "https://api.fas.usda.gov"

	// DefaultTimeout matches the per-request timeout of the published feed
	DefaultTimeout = 30 * time.Second

	// PSDExportsAttributeID identifies the exports attribute in the PSD feed
	PSDExportsAttributeID = 88

	// psdUnitScale converts PSD thousand-unit values to raw units
	psdUnitScale = 1000
)

// Client talks to the USDA FAS API (ESR exports and PSD feeds)
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	countries  map[int]string
}

// NewClient creates an API client. countries may be nil when no description
// lookup is wanted.
func NewClient(logger *slog.Logger, baseURL, apiKey string, countries map[int]string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		countries:  countries,
	}
}

// FetchExportsYear downloads the ESR export rows of one commodity for one
// marketing year, all destination countries.
func (c *Client) FetchExportsYear(ctx context.Context, commodityCode, marketYear int) (esr.ObservationSet, error) {
	url := fmt.Sprintf("%s/api/esr/exports/commodityCode/%d/allCountries/marketYear/%d",
		c.baseURL, commodityCode, marketYear)

	var records []ExportRecord
	if err := c.getJSON(ctx, url, &records); err != nil {
		return nil, fmt.Errorf("fetch ESR exports for MY %d: %w", marketYear, err)
	}

	obs := make(esr.ObservationSet, 0, len(records))
	for i, rec := range records {
		o, err := rec.Observation(c.countries)
		if err != nil {
			return nil, fmt.Errorf("record %d of MY %d: bad week-ending date %q: %w",
				i, marketYear, rec.WeekEndingDate, err)
		}
		obs = append(obs, o)
	}

	c.logger.Info("Fetched ESR exports", "commodity", commodityCode, "marketYear", marketYear, "rows", len(obs))
	return obs, nil
}

// FetchExports downloads and concatenates ESR rows across a marketing-year range
func (c *Client) FetchExports(ctx context.Context, commodityCode, startYear, endYear int) (esr.ObservationSet, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("start year %d after end year %d", startYear, endYear)
	}

	var all esr.ObservationSet
	for year := startYear; year <= endYear; year++ {
		obs, err := c.FetchExportsYear(ctx, commodityCode, year)
		if err != nil {
			return nil, err
		}
		all = append(all, obs...)
	}
	return all, nil
}

// FetchWASDEExport returns the PSD exports total for a commodity and market
// year, in raw units. When the requested year has no published rows yet it
// falls back to the prior year, matching the WASDE release cadence.
func (c *Client) FetchWASDEExport(ctx context.Context, psdCode, marketYear int) (float64, error) {
	value, found, err := c.psdExports(ctx, psdCode, marketYear)
	if err != nil {
		return 0, err
	}
	if !found {
		c.logger.Warn("No PSD rows for requested year, falling back", "psdCode", psdCode, "marketYear", marketYear)
		value, found, err = c.psdExports(ctx, psdCode, marketYear-1)
		if err != nil {
			return 0, err
		}
	}
	if !found {
		return 0, fmt.Errorf("no PSD export data for commodity %d in %d or %d", psdCode, marketYear, marketYear-1)
	}

	return value * psdUnitScale, nil
}

func (c *Client) psdExports(ctx context.Context, psdCode, marketYear int) (float64, bool, error) {
	url := fmt.Sprintf("%s/api/psd/commodity/%d/country/US/year/%d", c.baseURL, psdCode, marketYear)

	var records []PSDRecord
	if err := c.getJSON(ctx, url, &records); err != nil {
		return 0, false, fmt.Errorf("fetch PSD data for year %d: %w", marketYear, err)
	}

	for _, rec := range records {
		if rec.AttributeID == PSDExportsAttributeID {
			return rec.Value, true, nil
		}
	}
	return 0, false, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
