package db

import (
	"context"
)

const getSeries = `-- name: GetSeries :many
select date_key, value from trend_point
where series = ?
order by day asc, date_key asc
`

type GetSeriesRow struct {
	DateKey string
	Value   int64
}

func (q *Queries) GetSeries(ctx context.Context, series string) ([]GetSeriesRow, error) {
	rows, err := q.db.QueryContext(ctx, getSeries, series)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetSeriesRow
	for rows.Next() {
		var i GetSeriesRow
		if err := rows.Scan(&i.DateKey, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const putPoint = `-- name: PutPoint :exec
insert into trend_point (series, date_key, day, value)
values (?, ?, ?, ?)
on conflict (series, date_key) do update set value = excluded.value
`

type PutPointParams struct {
	Series  string
	DateKey string
	Day     int64
	Value   int64
}

func (q *Queries) PutPoint(ctx context.Context, arg PutPointParams) error {
	_, err := q.db.ExecContext(ctx, putPoint,
		arg.Series,
		arg.DateKey,
		arg.Day,
		arg.Value,
	)
	return err
}

const seedPoint = `-- name: SeedPoint :exec
insert into trend_point (series, date_key, day, value)
values (?, ?, ?, ?)
on conflict (series, date_key) do nothing
`

type SeedPointParams struct {
	Series  string
	DateKey string
	Day     int64
	Value   int64
}

func (q *Queries) SeedPoint(ctx context.Context, arg SeedPointParams) error {
	_, err := q.db.ExecContext(ctx, seedPoint,
		arg.Series,
		arg.DateKey,
		arg.Day,
		arg.Value,
	)
	return err
}
