// internal/adapter/deviceindex/postgres.go

// Package deviceindex provides implementations of the on-device photo
// index query contract. Desktop installs keep the index in Postgres; mobile
// installs expose it through a local HTTP plugin.
package deviceindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// PostgresIndex reads the device photo index from a Postgres table.
type PostgresIndex struct {
	db *pgxpool.Pool
}

// NewPostgresIndex creates an index backed by the given pool.
func NewPostgresIndex(db *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{db: db}
}

// Query returns one page of indexed photos inside the given box.
func (x *PostgresIndex) Query(ctx context.Context, q source.DeviceQuery) (*source.DevicePage, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM device_photos
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`

	var total int
	if err := x.db.QueryRow(ctx, countQuery, q.MinLat, q.MaxLat, q.MinLng, q.MaxLng).Scan(&total); err != nil {
		return nil, fmt.Errorf("count query error: %w", err)
	}

	pageQuery := `
		SELECT id, filename, path, latitude, longitude, altitude, bearing,
		       taken_at, accuracy, width, height, file_size, created_at
		FROM device_photos
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at DESC, id
		LIMIT $5 OFFSET $6
	`

	rows, err := x.db.Query(ctx, pageQuery,
		q.MinLat, q.MaxLat, q.MinLng, q.MaxLng,
		q.PageSize, q.Page*q.PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var photos []source.DevicePhoto
	for rows.Next() {
		var dp source.DevicePhoto
		if err := rows.Scan(
			&dp.ID, &dp.Filename, &dp.Path, &dp.Latitude, &dp.Longitude,
			&dp.Altitude, &dp.Bearing, &dp.Timestamp, &dp.Accuracy,
			&dp.Width, &dp.Height, &dp.FileSize, &dp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		photos = append(photos, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &source.DevicePage{
		Photos:     photos,
		TotalCount: total,
		HasMore:    (q.Page+1)*q.PageSize < total,
	}, nil
}
