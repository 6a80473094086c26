package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/bidding"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	"github.com/meta556-debug/bid2buy-try/internal/domain/repository"
)

// AuctionRepository persists listings and bids. The two mutating paths
// after creation, PlaceBid and Close, serialize on the product row lock
// so concurrent bids against one auction cannot both validate against a
// stale current price.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

const auctionColumns = `
	p.id, p.seller_id, COALESCE(p.winner_id::text, ''), p.title, p.description,
	p.category, p.condition, p.location, p.starting_price, p.current_price,
	p.media_type, p.images, COALESCE(p.video_url, ''), p.ai_verified, p.status,
	p.start_time, p.end_time, p.created_at, p.updated_at`

func scanAuction(row pgx.Row, withExtras bool) (*entity.Auction, error) {
	a := &entity.Auction{}
	dest := []any{
		&a.ID, &a.SellerID, &a.WinnerID, &a.Title, &a.Description,
		&a.Category, &a.Condition, &a.Location, &a.StartingPrice, &a.CurrentPrice,
		&a.MediaType, &a.Images, &a.VideoURL, &a.AIVerified, &a.Status,
		&a.StartTime, &a.EndTime, &a.CreatedAt, &a.UpdatedAt,
	}
	if withExtras {
		dest = append(dest, &a.SellerName, &a.BidCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AuctionRepository) Create(ctx context.Context, a *entity.Auction) error {
	var videoURL any
	if a.VideoURL != "" {
		videoURL = a.VideoURL
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products
			(seller_id, title, description, category, condition, location,
			 starting_price, current_price, media_type, images, video_url,
			 ai_verified, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $9, $10, $11, 'ACTIVE', $12, $13)
		RETURNING id, created_at, updated_at
	`, a.SellerID, a.Title, a.Description, a.Category, a.Condition, a.Location,
		a.StartingPrice, a.MediaType, a.Images, videoURL, a.AIVerified,
		a.StartTime, a.EndTime)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	a.CurrentPrice = a.StartingPrice
	a.Status = entity.StatusActive
	return nil
}

func (r *AuctionRepository) GetByID(ctx context.Context, id string) (*entity.Auction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+auctionColumns+`,
			u.name,
			(SELECT COUNT(*) FROM bids b WHERE b.product_id = p.id)
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
	`, id)
	a, err := scanAuction(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return a, nil
}

func (r *AuctionRepository) Bids(ctx context.Context, productID string) ([]entity.Bid, error) {
	return r.queryBids(ctx, `
		SELECT b.id, b.product_id, b.user_id, u.name, b.amount, b.created_at
		FROM bids b
		JOIN users u ON u.id = b.user_id
		WHERE b.product_id = $1
		ORDER BY b.amount DESC, b.created_at ASC
	`, productID)
}

func (r *AuctionRepository) BidsByUser(ctx context.Context, userID string) ([]entity.Bid, error) {
	return r.queryBids(ctx, `
		SELECT b.id, b.product_id, b.user_id, u.name, b.amount, b.created_at
		FROM bids b
		JOIN users u ON u.id = b.user_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`, userID)
}

func (r *AuctionRepository) queryBids(ctx context.Context, sql string, arg any) ([]entity.Bid, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	defer rows.Close()

	var bids []entity.Bid
	for rows.Next() {
		var b entity.Bid
		if err := rows.Scan(&b.ID, &b.ProductID, &b.UserID, &b.BidderName, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// List applies the public listing filters: always ACTIVE with a future
// end time, then category, substring search, price bounds and the
// relative time windows. most-bids sorting happens after the fetch since
// bid count is not a persisted column.
func (r *AuctionRepository) List(ctx context.Context, f repository.ListFilters) ([]entity.Auction, error) {
	now := time.Now()
	sql := `
		SELECT` + auctionColumns + `,
			u.name,
			(SELECT COUNT(*) FROM bids b WHERE b.product_id = p.id)
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.status = 'ACTIVE' AND p.end_time > $1`
	args := []any{now}

	if f.Category != "" && f.Category != "all" {
		args = append(args, f.Category)
		sql += fmt.Sprintf(" AND p.category = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		sql += fmt.Sprintf(" AND (p.title ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		sql += fmt.Sprintf(" AND p.current_price >= $%d", len(args))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		sql += fmt.Sprintf(" AND p.current_price <= $%d", len(args))
	}
	if until, ok := timeWindowEnd(f.TimeFilter, now); ok {
		args = append(args, until)
		sql += fmt.Sprintf(" AND p.end_time < $%d", len(args))
	}

	switch f.Sort {
	case repository.SortEndingSoon:
		sql += " ORDER BY p.end_time ASC"
	case repository.SortPriceAsc:
		sql += " ORDER BY p.current_price ASC"
	case repository.SortPriceDesc:
		sql += " ORDER BY p.current_price DESC"
	default:
		sql += " ORDER BY p.created_at DESC"
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var auctions []entity.Auction
	for rows.Next() {
		a, err := scanAuction(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		auctions = append(auctions, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if f.Sort == repository.SortMostBids {
		sort.SliceStable(auctions, func(i, j int) bool {
			return auctions[i].BidCount > auctions[j].BidCount
		})
	}
	return auctions, nil
}

func timeWindowEnd(filter string, now time.Time) (time.Time, bool) {
	switch filter {
	case repository.TimeEndingSoon:
		return now.Add(24 * time.Hour), true
	case repository.TimeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 23, 59, 59, 0, now.Location()), true
	case repository.TimeThisWeek:
		days := 7 - int(now.Weekday())
		y, m, d := now.AddDate(0, 0, days).Date()
		return time.Date(y, m, d, 23, 59, 59, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}

func (r *AuctionRepository) BySeller(ctx context.Context, sellerID string) ([]entity.Auction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+auctionColumns+`,
			u.name,
			(SELECT COUNT(*) FROM bids b WHERE b.product_id = p.id)
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.seller_id = $1
		ORDER BY p.created_at DESC
	`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	defer rows.Close()

	var auctions []entity.Auction
	for rows.Next() {
		a, err := scanAuction(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		auctions = append(auctions, *a)
	}
	return auctions, rows.Err()
}

// PlaceBid is the escrow operation: one transaction locks the product
// row, re-validates the bid against the locked state and the locked
// wallet balance, debits the escrow fraction with its BID ledger entry,
// inserts the bid and advances current_price. Either all effects commit
// or none do.
func (r *AuctionRepository) PlaceBid(ctx context.Context, productID, bidderID string, amount decimal.Decimal) (*entity.Bid, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT`+auctionColumns+`
		FROM products p
		WHERE p.id = $1
		FOR UPDATE
	`, productID)
	a, err := scanAuction(row, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	// Auction-level checks run before the wallet is touched so a bidder
	// without a wallet still gets the auction-level rejection. The bid
	// amount always covers its own escrow, so it stands in for the
	// balance here.
	if err := bidding.Validate(a, bidderID, amount, amount, time.Now()); err != nil {
		return nil, err
	}

	// Wallet lock ordering is always product then wallet.
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE
	`, bidderID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	if err := bidding.Validate(a, bidderID, amount, balance, time.Now()); err != nil {
		return nil, err
	}

	escrow := bidding.EscrowAmount(amount)
	desc := fmt.Sprintf("Placed bid on %s", a.Title)
	if err := applyLedgerEntry(ctx, tx, bidderID, escrow.Neg(), entity.TxBid, desc, productID); err != nil {
		return nil, err
	}

	bid := &entity.Bid{ProductID: productID, UserID: bidderID, Amount: amount}
	err = tx.QueryRow(ctx, `
		INSERT INTO bids (product_id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, productID, bidderID, amount).Scan(&bid.ID, &bid.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert bid: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET current_price = $1, updated_at = now() WHERE id = $2
	`, amount, productID); err != nil {
		return nil, fmt.Errorf("update current price: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return bid, nil
}

// Close flips ACTIVE -> ENDED and records the winner. The committed
// settlement carries the refund fan-out for the caller; the AlreadyEnded
// guard on the locked row makes re-running closure a no-op, which is what
// prevents double refunds.
func (r *AuctionRepository) Close(ctx context.Context, productID string) (*repository.ClosureResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT`+auctionColumns+`
		FROM products p
		WHERE p.id = $1
		FOR UPDATE
	`, productID)
	a, err := scanAuction(row, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	if a.Status != entity.StatusActive {
		return nil, apperrors.ErrAlreadyEnded
	}

	rows, err := tx.Query(ctx, `
		SELECT id, product_id, user_id, amount, created_at
		FROM bids
		WHERE product_id = $1
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	var bids []entity.Bid
	for rows.Next() {
		var b entity.Bid
		if err := rows.Scan(&b.ID, &b.ProductID, &b.UserID, &b.Amount, &b.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	settlement := bidding.Settle(bids)

	var winnerID any
	if settlement.WinnerID != "" {
		winnerID = settlement.WinnerID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET status = 'ENDED', winner_id = $1, updated_at = now() WHERE id = $2
	`, winnerID, productID); err != nil {
		return nil, fmt.Errorf("end product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	a.Status = entity.StatusEnded
	a.WinnerID = settlement.WinnerID
	return &repository.ClosureResult{Auction: a, Settlement: settlement}, nil
}

func (r *AuctionRepository) ExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM products
		WHERE status = 'ACTIVE' AND end_time < $1
		ORDER BY end_time ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ repository.AuctionRepository = (*AuctionRepository)(nil)
