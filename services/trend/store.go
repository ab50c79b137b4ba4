package trend

import (
	"context"
	"database/sql"
	"fmt"
	"incov-backend/lib/timezone"
	"incov-backend/services/trend/db"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type HistoryConfig struct {
	// local sqlite file, created when missing
	File string `json:"file"`
	// libsql:// url of a remote database, takes precedence over file
	Url       string `json:"url"`
	AuthToken string `json:"auth_token" env:"HISTORY_AUTH_TOKEN"`
}

// OpenDB opens the history database and applies the schema.
func (config HistoryConfig) OpenDB() (*sql.DB, error) {
	var database *sql.DB
	var err error

	switch {
	case config.Url != "":
		dsn := config.Url
		if config.AuthToken != "" {
			u, err := url.Parse(config.Url)
			if err != nil {
				return nil, err
			}
			query := u.Query()
			query.Set("authToken", config.AuthToken)
			u.RawQuery = query.Encode()
			dsn = u.String()
		}
		database, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	case config.File != "":
		err = os.MkdirAll(filepath.Dir(config.File), 0755)
		if err != nil {
			return nil, err
		}
		database, err = sql.Open("sqlite", config.File)
		if err != nil {
			return nil, err
		}
		database.SetMaxOpenConns(1)
		_, err = database.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			database.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("neither a file nor a url was specified for the history database")
	}

	_, err = database.Exec(db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		database.Close()
		return nil, err
	}
	return database, nil
}

// HistoryStore keeps the locally accumulated series (the ones no upstream
// time series exists for). A date key, once stored, only ever changes
// through Put, which the builder calls for today's key alone.
type HistoryStore struct {
	qry *db.Queries
}

func NewHistoryStore(database *sql.DB) HistoryStore {
	return HistoryStore{qry: db.New(database)}
}

// Seed inserts the points of series that are not stored yet. Stored points
// are left as they are.
func (s HistoryStore) Seed(ctx context.Context, name SeriesName, series Series) error {
	ctx, span := tracer.Start(ctx, "HistoryStore.Seed")
	defer span.End()
	span.SetAttributes(
		attribute.String("series", string(name)),
		attribute.Int("points", len(series)),
	)

	for _, p := range series {
		day, err := ParseDateKey(p.Date)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("seed key %q: %w", p.Date, err)
		}
		err = s.qry.SeedPoint(ctx, db.SeedPointParams{
			Series:  string(name),
			DateKey: p.Date,
			Day:     timezone.StartOfDay(day).Unix(),
			Value:   int64(p.Value),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

// Put records the value of the day now falls on, replacing a value
// recorded earlier that same day.
func (s HistoryStore) Put(ctx context.Context, name SeriesName, now time.Time, value int) error {
	ctx, span := tracer.Start(ctx, "HistoryStore.Put")
	defer span.End()

	key := DateKey(now)
	span.SetAttributes(
		attribute.String("series", string(name)),
		attribute.String("date_key", key),
		attribute.Int("value", value),
	)

	err := s.qry.PutPoint(ctx, db.PutPointParams{
		Series:  string(name),
		DateKey: key,
		Day:     timezone.StartOfDay(now).Unix(),
		Value:   int64(value),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s HistoryStore) Series(ctx context.Context, name SeriesName) (Series, error) {
	ctx, span := tracer.Start(ctx, "HistoryStore.Series")
	defer span.End()
	span.SetAttributes(attribute.String("series", string(name)))

	rows, err := s.qry.GetSeries(ctx, string(name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	series := make(Series, len(rows))
	for i, r := range rows {
		series[i] = Point{Date: r.DateKey, Value: int(r.Value)}
	}
	return series, nil
}
