package application

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/bidding"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	repo "github.com/meta556-debug/bid2buy-try/internal/domain/repository"
	"github.com/meta556-debug/bid2buy-try/internal/infrastructure/verify"
	"github.com/meta556-debug/bid2buy-try/pkg/helpers"
	"github.com/meta556-debug/bid2buy-try/pkg/mailer"
)

const placeholderImage = "https://placehold.co/600x400?text=No+Image"

// ListingVerifier screens new listings before publication. Image listings
// go through media/text moderation; video listings are scored against
// their description.
type ListingVerifier interface {
	VerifyListing(ctx context.Context, imageURL, description string) (*verify.Verdict, error)
	VerifyVideo(ctx context.Context, videoURL, description string) (*verify.Verdict, error)
}

// JobPublisher hands background jobs to the email worker queue.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AuctionService orchestrates listing creation, bidding and closure.
// Auction state transitions live in the repository transactions; this
// layer adds media upload, verification, caching, search indexing and
// notification fan-out around them.
type AuctionService struct {
	Auctions     repo.AuctionRepository
	Wallets      repo.WalletRepository
	Users        repo.UserRepository
	GCS          *storage.Client
	GCSBucket    string
	Redis        *redis.Client
	ES           *elasticsearch.Client
	ESIndex      string
	Verifier     ListingVerifier
	Publisher    JobPublisher
	Logger       *logrus.Logger
	ListCacheTTL time.Duration
}

func NewAuctionService(s AuctionService) *AuctionService {
	return &s
}

// MediaUpload is one file attached to a new listing.
type MediaUpload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

type CreateAuctionInput struct {
	Title         string
	Description   string
	Category      string
	Condition     string
	Location      string
	StartingPrice decimal.Decimal
	DurationType  string // hours | days | weeks
	DurationValue int
	MediaType     entity.MediaType
	Media         []MediaUpload
}

func auctionDuration(durationType string, value int) (time.Duration, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: duration must be greater than zero", apperrors.ErrInvalidInput)
	}
	switch durationType {
	case "hours":
		return time.Duration(value) * time.Hour, nil
	case "days":
		return time.Duration(value) * 24 * time.Hour, nil
	case "weeks":
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown duration type %q", apperrors.ErrInvalidInput, durationType)
	}
}

// Create publishes a new listing. Media files go to GCS; when no image
// uploads succeed a placeholder is used so every listing renders. The
// optional verifier screens image listings through moderation and video
// listings through description matching; its unavailability never
// blocks publication.
func (s *AuctionService) Create(ctx context.Context, sellerID string, in CreateAuctionInput) (*entity.Auction, error) {
	switch {
	case in.Title == "", in.Description == "", in.Category == "":
		return nil, fmt.Errorf("%w: title, description and category are required", apperrors.ErrInvalidInput)
	case !in.StartingPrice.IsPositive():
		return nil, fmt.Errorf("%w: starting price must be greater than zero", apperrors.ErrInvalidInput)
	}
	dur, err := auctionDuration(in.DurationType, in.DurationValue)
	if err != nil {
		return nil, err
	}
	if in.MediaType == "" {
		in.MediaType = entity.MediaImage
	}

	var images []string
	var videoURL string
	for _, m := range in.Media {
		url, upErr := s.uploadMedia(ctx, sellerID, m)
		if upErr != nil {
			if s.Logger != nil {
				s.Logger.WithError(upErr).WithField("filename", m.Filename).Warn("media upload failed")
			}
			continue
		}
		if in.MediaType == entity.MediaVideo && videoURL == "" {
			videoURL = url
		} else {
			images = append(images, url)
		}
	}
	if len(images) == 0 && in.MediaType == entity.MediaImage {
		images = []string{placeholderImage}
	}

	now := time.Now().UTC()
	a := &entity.Auction{
		SellerID:      sellerID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Condition:     in.Condition,
		Location:      in.Location,
		StartingPrice: in.StartingPrice.Round(2),
		CurrentPrice:  in.StartingPrice.Round(2),
		MediaType:     in.MediaType,
		Images:        images,
		VideoURL:      videoURL,
		Status:        entity.StatusActive,
		StartTime:     now,
		EndTime:       now.Add(dur),
	}

	if s.Verifier != nil {
		var verdict *verify.Verdict
		var vErr error
		if a.MediaType == entity.MediaVideo && a.VideoURL != "" {
			verdict, vErr = s.Verifier.VerifyVideo(ctx, a.VideoURL, a.Description)
		} else {
			image := ""
			if len(a.Images) > 0 && a.Images[0] != placeholderImage {
				image = a.Images[0]
			}
			verdict, vErr = s.Verifier.VerifyListing(ctx, image, a.Description)
		}
		switch {
		case errors.Is(vErr, apperrors.ErrVerificationUnavailable):
			if s.Logger != nil {
				s.Logger.WithField("title", a.Title).Warn("listing verification unavailable, publishing unverified")
			}
		case vErr != nil:
			return nil, vErr
		case !verdict.Approved:
			return nil, fmt.Errorf("%w: listing rejected by content screening", apperrors.ErrInvalidInput)
		default:
			a.AIVerified = true
		}
	}

	if err := s.Auctions.Create(ctx, a); err != nil {
		return nil, err
	}
	s.indexAuction(ctx, a)
	s.invalidateListCache(ctx)
	return a, nil
}

func (s *AuctionService) uploadMedia(ctx context.Context, sellerID string, m MediaUpload) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}
	ext := strings.ToLower(filepath.Ext(m.Filename))
	objectPath := filepath.ToSlash(filepath.Join("auctions", sellerID, uuid.NewString()+ext))
	return helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, m.ContentType, m.Reader)
}

// AuctionDetail is an auction together with its bid history.
type AuctionDetail struct {
	Auction *entity.Auction `json:"auction"`
	Bids    []entity.Bid    `json:"bids"`
	Ended   bool            `json:"ended"`
}

func (s *AuctionService) Get(ctx context.Context, id string) (*AuctionDetail, error) {
	a, err := s.Auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.Auctions.Bids(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AuctionDetail{Auction: a, Bids: bids, Ended: a.Ended(time.Now().UTC())}, nil
}

const listCacheVersionKey = "auctions:list:ver"

func (s *AuctionService) listCacheKey(ctx context.Context, f repo.ListFilters) string {
	ver := "0"
	if v, err := s.Redis.Get(ctx, listCacheVersionKey).Result(); err == nil {
		ver = v
	}
	raw, _ := json.Marshal(f)
	sum := sha1.Sum(raw)
	return "auctions:list:" + ver + ":" + hex.EncodeToString(sum[:])
}

func (s *AuctionService) invalidateListCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Incr(ctx, listCacheVersionKey).Err(); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("listing cache invalidation failed")
	}
}

// List returns the public listing page, served from a short-lived Redis
// cache keyed by the filter signature.
func (s *AuctionService) List(ctx context.Context, f repo.ListFilters) ([]entity.Auction, error) {
	if s.Redis == nil || s.ListCacheTTL <= 0 {
		return s.Auctions.List(ctx, f)
	}
	key := s.listCacheKey(ctx, f)
	var cached []entity.Auction
	if ok, err := helpers.RedisGetJSON(ctx, s.Redis, key, &cached); err == nil && ok {
		return cached, nil
	}
	auctions, err := s.Auctions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := helpers.RedisSetJSON(ctx, s.Redis, key, auctions, s.ListCacheTTL); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("listing cache write failed")
	}
	return auctions, nil
}

func (s *AuctionService) UserListings(ctx context.Context, sellerID string) ([]entity.Auction, error) {
	return s.Auctions.BySeller(ctx, sellerID)
}

func (s *AuctionService) UserBids(ctx context.Context, userID string) ([]entity.Bid, error) {
	return s.Auctions.BidsByUser(ctx, userID)
}

type PlaceBidResult struct {
	Bid     *entity.Bid     `json:"bid"`
	Escrow  decimal.Decimal `json:"escrow"`
	Message string          `json:"message"`
}

// PlaceBid runs the escrow transaction and, on success, notifies the
// previous leading bidder and refreshes the search index and cache.
func (s *AuctionService) PlaceBid(ctx context.Context, bidderID, productID string, amount decimal.Decimal) (*PlaceBidResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: bid amount must be greater than zero", apperrors.ErrInvalidInput)
	}
	amount = amount.Round(2)

	prevLeader := s.leadingBidder(ctx, productID)

	bid, err := s.Auctions.PlaceBid(ctx, productID, bidderID, amount)
	if err != nil {
		return nil, err
	}

	if prevLeader != nil && prevLeader.UserID != bidderID {
		s.sendAuctionEmail(ctx, prevLeader.UserID, mailer.TemplateOutbid, productID, amount)
	}
	if a, gErr := s.Auctions.GetByID(ctx, productID); gErr == nil {
		s.indexAuction(ctx, a)
	}
	s.invalidateListCache(ctx)

	return &PlaceBidResult{
		Bid:     bid,
		Escrow:  bidding.EscrowAmount(amount),
		Message: "Bid placed successfully",
	}, nil
}

func (s *AuctionService) leadingBidder(ctx context.Context, productID string) *entity.Bid {
	bids, err := s.Auctions.Bids(ctx, productID)
	if err != nil || len(bids) == 0 {
		return nil
	}
	return &bids[0]
}

type CloseAuctionResult struct {
	Auction  *entity.Auction `json:"auction"`
	WinnerID string          `json:"winner_id,omitempty"`
	Refunded int             `json:"refunded"`
	Message  string          `json:"message"`
}

// EndEarly closes an auction before its deadline at the seller's request.
func (s *AuctionService) EndEarly(ctx context.Context, actorID, productID string) (*CloseAuctionResult, error) {
	a, err := s.Auctions.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if a.SellerID != actorID {
		return nil, fmt.Errorf("%w: you can only end your own auctions", apperrors.ErrForbidden)
	}
	return s.closeAndSettle(ctx, productID)
}

// closeAndSettle commits the ACTIVE -> ENDED transition, then fans out
// escrow refunds as independent wallet credits. A failed refund is logged
// and does not block the others; the ledger makes it recoverable.
func (s *AuctionService) closeAndSettle(ctx context.Context, productID string) (*CloseAuctionResult, error) {
	res, err := s.Auctions.Close(ctx, productID)
	if err != nil {
		return nil, err
	}
	a := res.Auction

	refunded := 0
	for _, rf := range res.Settlement.Refunds {
		desc := fmt.Sprintf("Refund for bid on %s", a.Title)
		if cErr := s.Wallets.Credit(ctx, rf.UserID, rf.Amount, entity.TxRefund, desc, productID); cErr != nil {
			if s.Logger != nil {
				s.Logger.WithError(cErr).WithFields(logrus.Fields{
					"product_id": productID,
					"user_id":    rf.UserID,
					"bid_id":     rf.BidID,
					"amount":     rf.Amount.String(),
				}).Error("escrow refund failed")
			}
			continue
		}
		refunded++
		s.sendAuctionEmail(ctx, rf.UserID, mailer.TemplateBidRefunded, productID, rf.Amount)
	}

	if res.Settlement.WinnerID != "" {
		s.sendAuctionEmail(ctx, res.Settlement.WinnerID, mailer.TemplateAuctionWon, productID, res.Settlement.WinningBid.Amount)
	}

	s.indexAuction(ctx, a)
	s.invalidateListCache(ctx)

	msg := "Auction ended"
	if res.Settlement.WinnerID == "" {
		msg = "Auction ended with no bids"
	}
	return &CloseAuctionResult{
		Auction:  a,
		WinnerID: res.Settlement.WinnerID,
		Refunded: refunded,
		Message:  msg,
	}, nil
}

// CloseExpired settles a single past-deadline auction. Used by the sweeper;
// ErrAlreadyEnded means another path got there first and is not a failure.
func (s *AuctionService) CloseExpired(ctx context.Context, productID string) error {
	_, err := s.closeAndSettle(ctx, productID)
	if errors.Is(err, apperrors.ErrAlreadyEnded) {
		return nil
	}
	return err
}

func (s *AuctionService) sendAuctionEmail(ctx context.Context, userID, template, productID string, amount decimal.Decimal) {
	if s.Publisher == nil {
		return
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return
	}
	title := productID
	if a, gErr := s.Auctions.GetByID(ctx, productID); gErr == nil {
		title = a.Title
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: template,
		Data: map[string]any{
			"Title":  title,
			"Amount": amount.StringFixed(2),
		},
	}
	if err := s.Publisher.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"template": template,
			"user_id":  userID,
		}).Warn("email publish failed")
	}
}

type auctionDoc struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	CurrentPrice string    `json:"current_price"`
	Status       string    `json:"status"`
	EndTime      time.Time `json:"end_time"`
}

func (s *AuctionService) indexAuction(ctx context.Context, a *entity.Auction) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := auctionDoc{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		Category:     a.Category,
		CurrentPrice: a.CurrentPrice.StringFixed(2),
		Status:       string(a.Status),
		EndTime:      a.EndTime,
	}
	body, _ := json.Marshal(doc)
	res, err := s.ES.Index(s.ESIndex, bytes.NewReader(body),
		s.ES.Index.WithDocumentID(a.ID),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("auction_id", a.ID).Warn("es index failed")
		}
		return
	}
	defer res.Body.Close()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"auction_id": a.ID, "status": res.StatusCode}).Warn("es index failed")
	}
}

// Search queries Elasticsearch over titles and descriptions, falling back
// to the SQL substring filter when no cluster is configured.
func (s *AuctionService) Search(ctx context.Context, query string, size int) ([]entity.Auction, error) {
	if s.ES == nil || s.ESIndex == "" {
		return s.Auctions.List(ctx, repo.ListFilters{Search: query})
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	q := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "description", "category"},
			},
		},
	}
	body, _ := json.Marshal(q)
	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}
	var out struct {
		Hits struct {
			Hits []struct {
				Source auctionDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	auctions := make([]entity.Auction, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		a, gErr := s.Auctions.GetByID(ctx, h.Source.ID)
		if gErr != nil {
			continue
		}
		auctions = append(auctions, *a)
	}
	return auctions, nil
}
