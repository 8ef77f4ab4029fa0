package repository

import (
	"book-auction/internal/biddingerrors"
	model "book-auction/internal/models"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresConfig holds connection parameters for the PostgreSQL store
type PostgresConfig struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// ConnString builds a PostgreSQL connection string from the config
func (cfg PostgresConfig) ConnString() string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database, sslMode)
}

// PostgresRepo is a durable implementation of AuctionDB backed by pgx
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo opens a connection pool and verifies connectivity
func NewPostgresRepo(ctx context.Context, cfg PostgresConfig) (*PostgresRepo, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// Close shuts down the connection pool
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// RunMigrations applies the embedded SQL files in lexicographic order,
// tracking applied files in schema_migrations.
func (r *PostgresRepo) RunMigrations(ctx context.Context) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := r.pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("postgres: create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if err := r.applyMigration(ctx, entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepo) applyMigration(ctx context.Context, name string) error {
	var applied bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)", name).Scan(&applied)
	if err != nil {
		return fmt.Errorf("postgres: check migration %s: %w", name, err)
	}
	if applied {
		return nil
	}

	data, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("postgres: read migration %s: %w", name, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx for %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("postgres: exec migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
		return fmt.Errorf("postgres: record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit migration %s: %w", name, err)
	}
	return nil
}

const auctionColumns = "id, item_id, floor_amount, start_at, end_at, state, winner_bid_id, resolved_at, created_at"

func scanAuction(row pgx.Row) (model.Auction, error) {
	var a model.Auction
	var state string
	err := row.Scan(&a.AuctionID, &a.ItemID, &a.FloorAmount, &a.StartAt, &a.EndAt,
		&state, &a.WinnerBidID, &a.ResolvedAt, &a.CreatedAt)
	if err != nil {
		return model.Auction{}, err
	}
	a.State = model.AuctionState(state)
	a.StartAt = a.StartAt.UTC()
	a.EndAt = a.EndAt.UTC()
	return a, nil
}

// CreateAuction inserts a new auction
func (r *PostgresRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO auctions ("+auctionColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		auction.AuctionID, auction.ItemID, auction.FloorAmount, auction.StartAt, auction.EndAt,
		string(auction.State), auction.WinnerBidID, auction.ResolvedAt, auction.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("postgres: create auction %s: %w", auction.AuctionID, biddingerrors.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create auction %s: %w", auction.AuctionID, err)
	}
	return nil
}

// GetAuction retrieves an auction by id
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+auctionColumns+" FROM auctions WHERE id = $1", auctionID)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Auction{}, fmt.Errorf("postgres: get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("postgres: get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// ListAuctions returns all auctions ordered by start time
func (r *PostgresRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+auctionColumns+" FROM auctions ORDER BY start_at, id")
	if err != nil {
		return nil, fmt.Errorf("postgres: list auctions: %w", err)
	}
	return collectAuctions(rows)
}

func collectAuctions(rows pgx.Rows) ([]model.Auction, error) {
	defer rows.Close()

	auctions := []model.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: auction rows: %w", err)
	}
	return auctions, nil
}

// UpdateAuctionResolution records the resolution state and winner of an auction
func (r *PostgresRepo) UpdateAuctionResolution(ctx context.Context, auctionID string, state model.AuctionState, winnerBidID *string, resolvedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE auctions SET state = $1, winner_bid_id = $2, resolved_at = $3 WHERE id = $4",
		string(state), winnerBidID, resolvedAt, auctionID)
	if err != nil {
		return fmt.Errorf("postgres: update resolution for auction %s: %w", auctionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update resolution for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return nil
}

// AppendBid inserts a bid into the ledger
func (r *PostgresRepo) AppendBid(ctx context.Context, bid model.Bid) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at, sequence, status) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt, bid.Sequence, string(bid.Status))
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("postgres: append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
		}
		return fmt.Errorf("postgres: append bid for auction %s: %w", bid.AuctionID, err)
	}
	return nil
}

// GetBidsByAuction returns the full ledger of an auction in admission order
func (r *PostgresRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)", auctionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: check auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("postgres: get bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	rows, err := r.pool.Query(ctx,
		"SELECT id, auction_id, bidder_id, amount, placed_at, sequence, status FROM bids WHERE auction_id = $1 ORDER BY sequence",
		auctionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	bids := []model.Bid{}
	for rows.Next() {
		var b model.Bid
		var status string
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.PlacedAt, &b.Sequence, &status); err != nil {
			return nil, fmt.Errorf("postgres: scan bid: %w", err)
		}
		b.Status = model.BidStatus(status)
		b.PlacedAt = b.PlacedAt.UTC()
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bid rows: %w", err)
	}
	return bids, nil
}

// RecordWithdrawal marks the withdrawn and superseded bids and records the
// promoted winner in a single transaction
func (r *PostgresRepo) RecordWithdrawal(ctx context.Context, w model.WithdrawalRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin withdrawal tx for auction %s: %w", w.AuctionID, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE bids SET status = $1 WHERE id = $2 AND auction_id = $3",
		string(model.BidWithdrawn), w.WithdrawnBidID, w.AuctionID)
	if err != nil {
		return fmt.Errorf("postgres: withdraw bid %s: %w", w.WithdrawnBidID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: withdraw bid %s in auction %s: %w", w.WithdrawnBidID, w.AuctionID, biddingerrors.ErrBidNotFound)
	}

	if len(w.SupersededBidIDs) > 0 {
		tag, err = tx.Exec(ctx,
			"UPDATE bids SET status = $1 WHERE auction_id = $2 AND id = ANY($3)",
			string(model.BidSuperseded), w.AuctionID, w.SupersededBidIDs)
		if err != nil {
			return fmt.Errorf("postgres: supersede bids in auction %s: %w", w.AuctionID, err)
		}
		if tag.RowsAffected() != int64(len(w.SupersededBidIDs)) {
			return fmt.Errorf("postgres: supersede bids in auction %s: %w", w.AuctionID, biddingerrors.ErrBidNotFound)
		}
	}

	tag, err = tx.Exec(ctx,
		"UPDATE auctions SET state = $1, winner_bid_id = $2, resolved_at = $3 WHERE id = $4",
		string(model.StateResolved), w.NewWinnerBidID, w.At, w.AuctionID)
	if err != nil {
		return fmt.Errorf("postgres: record promotion on auction %s: %w", w.AuctionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: record promotion on auction %s: %w", w.AuctionID, biddingerrors.ErrAuctionNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit withdrawal for auction %s: %w", w.AuctionID, err)
	}
	return nil
}

// GetAuctionsByBidder returns all auctions a bidder has bid on, in first-bid order
func (r *PostgresRepo) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.item_id, a.floor_amount, a.start_at, a.end_at, a.state, a.winner_bid_id, a.resolved_at, a.created_at
		 FROM auctions a
		 JOIN (SELECT auction_id, MIN(placed_at) AS first_bid FROM bids WHERE bidder_id = $1 GROUP BY auction_id) b
		   ON b.auction_id = a.id
		 ORDER BY b.first_bid`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get auctions for bidder %s: %w", bidderID, err)
	}
	return collectAuctions(rows)
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Compile-time interface checks.
var (
	_ AuctionDB = (*MemoryRepo)(nil)
	_ AuctionDB = (*PostgresRepo)(nil)
)
