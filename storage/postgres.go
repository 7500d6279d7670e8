package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Ahmed-Esso/airbnb-analytics/config"
	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

// PostgresStore persists records alongside the file exports. Failing to
// reach the database when it is enabled is session-fatal — everything else
// in the pipeline degrades per task, but storage must be there from the
// start or not at all.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg config.Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts records keyed on canonical URL.
func (s *PostgresStore) SaveRecords(ctx context.Context, records []*models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (
			url, price, room_type, is_shared, is_private, person_capacity,
			host_is_superhost, is_multi_listing, is_business_ready,
			cleanliness_rating, overall_rating, review_count,
			bedrooms, city, longitude, latitude, beds, bathrooms,
			wifi, kitchen, air_conditioning, parking, tv, heating
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (url) DO UPDATE
		SET
			price = EXCLUDED.price,
			room_type = EXCLUDED.room_type,
			is_shared = EXCLUDED.is_shared,
			is_private = EXCLUDED.is_private,
			person_capacity = EXCLUDED.person_capacity,
			host_is_superhost = EXCLUDED.host_is_superhost,
			is_multi_listing = EXCLUDED.is_multi_listing,
			is_business_ready = EXCLUDED.is_business_ready,
			cleanliness_rating = EXCLUDED.cleanliness_rating,
			overall_rating = EXCLUDED.overall_rating,
			review_count = EXCLUDED.review_count,
			bedrooms = EXCLUDED.bedrooms,
			city = EXCLUDED.city,
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			beds = EXCLUDED.beds,
			bathrooms = EXCLUDED.bathrooms,
			wifi = EXCLUDED.wifi,
			kitchen = EXCLUDED.kitchen,
			air_conditioning = EXCLUDED.air_conditioning,
			parking = EXCLUDED.parking,
			tv = EXCLUDED.tv,
			heating = EXCLUDED.heating,
			updated_at = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, rec := range records {
		if rec.URL == "" {
			continue
		}
		if _, err = stmt.ExecContext(
			ctx,
			rec.URL,
			rec.Price,
			nullString(rec.RoomType),
			rec.IsShared,
			rec.IsPrivate,
			rec.PersonCapacity,
			rec.HostIsSuperhost,
			rec.IsMultiListing,
			rec.IsBusinessReady,
			rec.CleanlinessRating,
			rec.OverallRating,
			rec.ReviewCount,
			rec.Bedrooms,
			nullString(rec.City),
			rec.Longitude,
			rec.Latitude,
			rec.Beds,
			rec.Bathrooms,
			rec.Wifi,
			rec.Kitchen,
			rec.AirConditioning,
			rec.Parking,
			rec.TV,
			rec.Heating,
		); err != nil {
			return 0, fmt.Errorf("insert listing %q: %w", rec.URL, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			price INTEGER,
			room_type TEXT,
			is_shared BOOLEAN NOT NULL DEFAULT FALSE,
			is_private BOOLEAN NOT NULL DEFAULT FALSE,
			person_capacity INTEGER,
			host_is_superhost BOOLEAN NOT NULL DEFAULT FALSE,
			is_multi_listing BOOLEAN NOT NULL DEFAULT FALSE,
			is_business_ready BOOLEAN NOT NULL DEFAULT FALSE,
			cleanliness_rating REAL,
			overall_rating REAL,
			review_count INTEGER,
			bedrooms INTEGER,
			city TEXT,
			longitude DOUBLE PRECISION,
			latitude DOUBLE PRECISION,
			beds INTEGER,
			bathrooms INTEGER,
			wifi BOOLEAN NOT NULL DEFAULT FALSE,
			kitchen BOOLEAN NOT NULL DEFAULT FALSE,
			air_conditioning BOOLEAN NOT NULL DEFAULT FALSE,
			parking BOOLEAN NOT NULL DEFAULT FALSE,
			tv BOOLEAN NOT NULL DEFAULT FALSE,
			heating BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listings_city ON listings(city);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
