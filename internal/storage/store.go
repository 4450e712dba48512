package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ListingRecord is a finalized listing persisted for the history view.
type ListingRecord struct {
	ID          string
	Note        string
	ImagePath   string
	Description string
	Hashtags    []string
	AIPrice     *float64
	UserPrice   float64
	PublishURL  string
	CreatedAt   time.Time
}

// Store defines the interface for listing persistence.
type Store interface {
	SaveListing(rec ListingRecord) error
	RecentListings(limit int) ([]ListingRecord, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the listing database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode and busy timeout for better concurrency between the web
	// handler goroutines.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		note TEXT NOT NULL,
		image_path TEXT NOT NULL,
		description TEXT NOT NULL,
		hashtags TEXT NOT NULL,
		ai_price REAL,
		user_price REAL NOT NULL DEFAULT 0,
		publish_url TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveListing persists one finalized listing. Hashtags are stored as a JSON
// array to keep their order.
func (s *SQLiteStore) SaveListing(rec ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hashtags, err := json.Marshal(rec.Hashtags)
	if err != nil {
		return fmt.Errorf("failed to encode hashtags: %w", err)
	}

	var aiPrice sql.NullFloat64
	if rec.AIPrice != nil {
		aiPrice = sql.NullFloat64{Float64: *rec.AIPrice, Valid: true}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO listings (id, note, image_path, description, hashtags, ai_price, user_price, publish_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Note, rec.ImagePath, rec.Description, string(hashtags), aiPrice, rec.UserPrice, rec.PublishURL, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// RecentListings returns up to limit listings, newest first.
func (s *SQLiteStore) RecentListings(limit int) ([]ListingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, note, image_path, description, hashtags, ai_price, user_price, publish_url, created_at
		FROM listings ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var records []ListingRecord
	for rows.Next() {
		var rec ListingRecord
		var hashtags string
		var aiPrice sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.Note, &rec.ImagePath, &rec.Description, &hashtags, &aiPrice, &rec.UserPrice, &rec.PublishURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		if err := json.Unmarshal([]byte(hashtags), &rec.Hashtags); err != nil {
			return nil, fmt.Errorf("failed to decode hashtags: %w", err)
		}
		if aiPrice.Valid {
			price := aiPrice.Float64
			rec.AIPrice = &price
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
