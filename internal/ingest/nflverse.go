package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ScheduleRow is one game as published in the nflverse schedules release.
type ScheduleRow struct {
	Season      int
	Week        int
	GameDay     *time.Time
	HomeTeam    string
	AwayTeam    string
	HomeScore   *int
	AwayScore   *int
	NeutralSite bool
	Location    string
}

// TeamWeekRow is one row of the nflverse weekly team stats release. Fields
// absent from the source stay nil and flow through as missing stats.
type TeamWeekRow struct {
	Team       string
	Season     int
	Week       int
	OffEPA     *float64
	DefEPA     *float64
	PointDiff  *float64
	RecentForm *float64
}

// Client fetches nflverse data releases. Failures trip a circuit breaker so a
// flaky upstream can't stall the refresh cron, and requests are rate limited
// to stay a polite consumer.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, requestsPerSec int, breakerThreshold int, logger *logrus.Logger) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nflverse",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(breakerThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("nflverse circuit breaker state changed")
		},
	})

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec),
		circuitBreaker: cb,
		logger:         logger,
	}
}

// FetchSchedule downloads the full schedule (with results) for a season.
func (c *Client) FetchSchedule(ctx context.Context, season int) ([]ScheduleRow, error) {
	url := fmt.Sprintf("%s/schedules/sched_%d.csv", c.baseURL, season)
	records, err := c.fetchCSV(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := columnIndex(records[0])
	var rows []ScheduleRow
	for _, rec := range records[1:] {
		get := func(name string) string { return cell(rec, cols, name) }

		// Survivor pools run on the regular season only.
		if gameType := get("game_type"); gameType != "" && gameType != "REG" {
			continue
		}

		week, err := strconv.Atoi(get("week"))
		if err != nil {
			continue
		}

		row := ScheduleRow{
			Season:      season,
			Week:        week,
			HomeTeam:    get("home_team"),
			AwayTeam:    get("away_team"),
			HomeScore:   parseIntPtr(get("home_score")),
			AwayScore:   parseIntPtr(get("away_score")),
			NeutralSite: get("neutral_site") == "1" || get("neutral_site") == "TRUE",
			Location:    get("stadium"),
		}
		if day, err := time.Parse("2006-01-02", get("gameday")); err == nil {
			row.GameDay = &day
		}
		rows = append(rows, row)
	}

	c.logger.Infof("Fetched %d scheduled games for season %d", len(rows), season)
	return rows, nil
}

// FetchTeamWeekStats downloads the weekly team stats release for a season.
func (c *Client) FetchTeamWeekStats(ctx context.Context, season int) ([]TeamWeekRow, error) {
	url := fmt.Sprintf("%s/stats_team/stats_team_week_%d.csv", c.baseURL, season)
	records, err := c.fetchCSV(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := columnIndex(records[0])
	var rows []TeamWeekRow
	for _, rec := range records[1:] {
		get := func(name string) string { return cell(rec, cols, name) }

		week, err := strconv.Atoi(get("week"))
		if err != nil {
			continue
		}

		rows = append(rows, TeamWeekRow{
			Team:      get("team"),
			Season:    season,
			Week:      week,
			OffEPA:    parseFloatPtr(get("offense_epa_per_play")),
			DefEPA:    parseFloatPtr(get("defense_epa_per_play")),
			PointDiff: parseFloatPtr(get("point_differential")),
		})
	}

	c.logger.Infof("Fetched %d team-week stat rows for season %d", len(rows), season)
	return rows, nil
}

// fetchCSV runs one rate-limited, breaker-guarded download and parses it.
func (c *Client) fetchCSV(ctx context.Context, url string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}

		reader := csv.NewReader(resp.Body)
		reader.FieldsPerRecord = -1
		var records [][]string
		for {
			rec, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse CSV from %s: %w", url, err)
			}
			records = append(records, rec)
		}
		return records, nil
	})
	if err != nil {
		return nil, fmt.Errorf("nflverse fetch failed: %w", err)
	}

	return result.([][]string), nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	return cols
}

func cell(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseIntPtr(s string) *int {
	if s == "" || s == "NA" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some score columns arrive as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		v = int(f)
	}
	return &v
}

func parseFloatPtr(s string) *float64 {
	if s == "" || s == "NA" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
