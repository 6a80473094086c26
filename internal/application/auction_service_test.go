package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	repo "github.com/meta556-debug/bid2buy-try/internal/domain/repository"
	"github.com/meta556-debug/bid2buy-try/internal/infrastructure/verify"
	"github.com/meta556-debug/bid2buy-try/pkg/mailer"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	store    *memStore
	users    *memUserRepo
	wallets  *memWalletRepo
	auctions *memAuctionRepo
	svc      *AuctionService
	walletSv *WalletService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store:    store,
		users:    &memUserRepo{s: store},
		wallets:  &memWalletRepo{s: store},
		auctions: &memAuctionRepo{s: store},
	}
	f.svc = NewAuctionService(AuctionService{
		Auctions: f.auctions,
		Wallets:  f.wallets,
		Users:    f.users,
		Logger:   testLogger(),
	})
	f.walletSv = NewWalletService(f.wallets, testLogger())
	return f
}

func (f *fixture) user(t *testing.T, name, funds string) string {
	t.Helper()
	u := &entity.User{Name: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	if funds != "0" {
		require.NoError(t, f.wallets.AddFunds(context.Background(), u.ID, dec(funds)))
	}
	return u.ID
}

func (f *fixture) auction(t *testing.T, sellerID, startingPrice string, endsIn time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	a := &entity.Auction{
		SellerID:      sellerID,
		Title:         "Test item",
		Description:   "A thing worth bidding on",
		Category:      "misc",
		StartingPrice: dec(startingPrice),
		MediaType:     entity.MediaImage,
		StartTime:     now,
		EndTime:       now.Add(endsIn),
	}
	require.NoError(t, f.auctions.Create(context.Background(), a))
	return a.ID
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func TestPlaceBidDebitsEscrowAndRaisesPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	prod := f.auction(t, seller, "50", time.Hour)

	res, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
	require.NoError(t, err)
	require.True(t, dec("30").Equal(res.Escrow))
	require.Equal(t, "Bid placed successfully", res.Message)

	require.True(t, dec("70").Equal(f.balance(t, alice)))

	a, err := f.auctions.GetByID(ctx, prod)
	require.NoError(t, err)
	require.True(t, dec("60").Equal(a.CurrentPrice))
}

func TestPlaceBidRejectedBidLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	bob := f.user(t, "bob", "20")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
	require.NoError(t, err)

	// bob would need 40 escrowed but only has 20
	_, err = f.svc.PlaceBid(ctx, bob, prod, dec("80"))
	require.True(t, apperrors.IsInsufficientFunds(err))

	require.True(t, dec("20").Equal(f.balance(t, bob)))
	txs, err := f.wallets.Transactions(ctx, bob)
	require.NoError(t, err)
	require.Len(t, txs, 1) // just the deposit
	bids, err := f.auctions.Bids(ctx, prod)
	require.NoError(t, err)
	require.Len(t, bids, 1)

	a, err := f.auctions.GetByID(ctx, prod)
	require.NoError(t, err)
	require.True(t, dec("60").Equal(a.CurrentPrice), "failed bid must not move the price")
}

func TestPlaceBidPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "100")
	alice := f.user(t, "alice", "100")

	t.Run("unknown_auction", func(t *testing.T) {
		_, err := f.svc.PlaceBid(ctx, alice, "missing", dec("10"))
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("self_bid", func(t *testing.T) {
		prod := f.auction(t, seller, "50", time.Hour)
		_, err := f.svc.PlaceBid(ctx, seller, prod, dec("60"))
		require.ErrorIs(t, err, apperrors.ErrSelfBid)
	})

	t.Run("equal_bid_too_low", func(t *testing.T) {
		prod := f.auction(t, seller, "50", time.Hour)
		_, err := f.svc.PlaceBid(ctx, alice, prod, dec("50"))
		require.ErrorIs(t, err, apperrors.ErrBidTooLow)
	})

	t.Run("past_deadline_rejects_as_closed", func(t *testing.T) {
		prod := f.auction(t, seller, "50", -time.Minute)
		_, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
		require.ErrorIs(t, err, apperrors.ErrAuctionClosed)
	})

	t.Run("missing_wallet_on_ended_auction_rejects_as_closed", func(t *testing.T) {
		prod := f.auction(t, seller, "50", -time.Minute)
		_, err := f.svc.PlaceBid(ctx, "ghost", prod, dec("60"))
		require.ErrorIs(t, err, apperrors.ErrAuctionClosed)
	})

	t.Run("missing_wallet_on_live_auction", func(t *testing.T) {
		prod := f.auction(t, seller, "50", time.Hour)
		_, err := f.svc.PlaceBid(ctx, "ghost", prod, dec("60"))
		require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
	})
}

// The end-to-end escrow scenario: two accepted bids, one rejected, early
// close, loser refunded, winner's escrow retained.
func TestAuctionLifecycleSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	bob := f.user(t, "bob", "20")
	carol := f.user(t, "carol", "200")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, bob, prod, dec("80"))
	require.True(t, apperrors.IsInsufficientFunds(err))
	_, err = f.svc.PlaceBid(ctx, carol, prod, dec("80"))
	require.NoError(t, err)

	res, err := f.svc.EndEarly(ctx, seller, prod)
	require.NoError(t, err)
	require.Equal(t, carol, res.WinnerID)
	require.Equal(t, 1, res.Refunded)
	require.Equal(t, entity.StatusEnded, res.Auction.Status)

	require.True(t, dec("100").Equal(f.balance(t, alice)), "loser made whole")
	require.True(t, dec("20").Equal(f.balance(t, bob)), "rejected bidder untouched")
	require.True(t, dec("160").Equal(f.balance(t, carol)), "winner escrow retained")

	// the ledger still replays to the cached balances
	for _, id := range []string{alice, bob, carol} {
		rec, rErr := f.walletSv.Reconcile(ctx, id)
		require.NoError(t, rErr)
		require.True(t, rec.Match, "ledger drift for %s", id)
	}
}

func TestEndEarlyOnlySeller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.EndEarly(ctx, alice, prod)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	a, err := f.auctions.GetByID(ctx, prod)
	require.NoError(t, err)
	require.Equal(t, entity.StatusActive, a.Status)
}

func TestClosureIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	carol := f.user(t, "carol", "200")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, carol, prod, dec("80"))
	require.NoError(t, err)

	_, err = f.svc.EndEarly(ctx, seller, prod)
	require.NoError(t, err)

	_, err = f.svc.EndEarly(ctx, seller, prod)
	require.ErrorIs(t, err, apperrors.ErrAlreadyEnded)

	// no duplicate refunds
	refunds := 0
	for _, tx := range f.store.txs {
		if tx.Type == entity.TxRefund {
			refunds++
		}
	}
	require.Equal(t, 1, refunds)
	require.True(t, dec("100").Equal(f.balance(t, alice)))
}

func TestCloseExpiredSwallowsAlreadyEnded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.EndEarly(ctx, seller, prod)
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseExpired(ctx, prod))
}

func TestCloseWithNoBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	prod := f.auction(t, seller, "50", time.Hour)

	res, err := f.svc.EndEarly(ctx, seller, prod)
	require.NoError(t, err)
	require.Empty(t, res.WinnerID)
	require.Equal(t, 0, res.Refunded)
	require.Equal(t, "Auction ended with no bids", res.Message)
}

// failingWallets rejects refunds for one user to exercise the
// continue-on-error fan-out.
type failingWallets struct {
	*memWalletRepo
	failUser string
}

func (w *failingWallets) Credit(ctx context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	if userID == w.failUser {
		return context.DeadlineExceeded
	}
	return w.memWalletRepo.Credit(ctx, userID, amount, typ, description, productID)
}

func TestRefundFanOutContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	bob := f.user(t, "bob", "100")
	carol := f.user(t, "carol", "200")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, bob, prod, dec("70"))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, carol, prod, dec("90"))
	require.NoError(t, err)

	f.svc.Wallets = &failingWallets{memWalletRepo: f.wallets, failUser: alice}

	res, err := f.svc.EndEarly(ctx, seller, prod)
	require.NoError(t, err)
	require.Equal(t, carol, res.WinnerID)
	require.Equal(t, 1, res.Refunded, "bob still refunded when alice's credit fails")

	require.True(t, dec("70").Equal(f.balance(t, alice)), "failed refund leaves escrow debited")
	require.True(t, dec("100").Equal(f.balance(t, bob)))
}

func TestCreateAuctionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")

	base := CreateAuctionInput{
		Title:         "Lamp",
		Description:   "Desk lamp",
		Category:      "home",
		StartingPrice: dec("10"),
		DurationType:  "days",
		DurationValue: 3,
	}

	t.Run("creates_active_auction_with_placeholder_image", func(t *testing.T) {
		a, err := f.svc.Create(ctx, seller, base)
		require.NoError(t, err)
		require.Equal(t, entity.StatusActive, a.Status)
		require.True(t, a.CurrentPrice.Equal(a.StartingPrice))
		require.Equal(t, []string{placeholderImage}, a.Images)
		require.WithinDuration(t, a.StartTime.Add(72*time.Hour), a.EndTime, time.Second)
	})

	t.Run("rejects_zero_price", func(t *testing.T) {
		in := base
		in.StartingPrice = dec("0")
		_, err := f.svc.Create(ctx, seller, in)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects_unknown_duration_type", func(t *testing.T) {
		in := base
		in.DurationType = "months"
		_, err := f.svc.Create(ctx, seller, in)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects_missing_title", func(t *testing.T) {
		in := base
		in.Title = ""
		_, err := f.svc.Create(ctx, seller, in)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestListExcludesClosedAndFiltersCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")

	active := f.auction(t, seller, "50", time.Hour)
	expired := f.auction(t, seller, "50", -time.Minute)
	ended := f.auction(t, seller, "50", time.Hour)
	_, err := f.svc.EndEarly(ctx, seller, ended)
	require.NoError(t, err)

	out, err := f.svc.List(ctx, repo.ListFilters{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, active, out[0].ID)
	for _, a := range out {
		require.NotEqual(t, expired, a.ID)
		require.NotEqual(t, ended, a.ID)
	}

	out, err = f.svc.List(ctx, repo.ListFilters{Category: "electronics"})
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = f.svc.List(ctx, repo.ListFilters{Category: "all"})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

// stubVerifier simulates the moderation backend.
type stubVerifier struct {
	approved    bool
	unavailable bool
	videoCalls  int
}

func (v *stubVerifier) VerifyListing(context.Context, string, string) (*verify.Verdict, error) {
	if v.unavailable {
		return nil, apperrors.ErrVerificationUnavailable
	}
	return &verify.Verdict{Approved: v.approved}, nil
}

func (v *stubVerifier) VerifyVideo(context.Context, string, string) (*verify.Verdict, error) {
	v.videoCalls++
	if v.unavailable {
		return nil, apperrors.ErrVerificationUnavailable
	}
	return &verify.Verdict{Approved: v.approved, MatchScore: 0.9}, nil
}

func TestCreateAuctionVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller", "0")

	in := CreateAuctionInput{
		Title:         "Poster",
		Description:   "Concert poster",
		Category:      "art",
		StartingPrice: dec("5"),
		DurationType:  "hours",
		DurationValue: 6,
	}

	t.Run("approved_listing_is_marked_verified", func(t *testing.T) {
		f.svc.Verifier = &stubVerifier{approved: true}
		a, err := f.svc.Create(ctx, seller, in)
		require.NoError(t, err)
		require.True(t, a.AIVerified)
	})

	t.Run("rejected_listing_is_not_published", func(t *testing.T) {
		f.svc.Verifier = &stubVerifier{approved: false}
		_, err := f.svc.Create(ctx, seller, in)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("unavailable_backend_publishes_unverified", func(t *testing.T) {
		f.svc.Verifier = &stubVerifier{unavailable: true}
		a, err := f.svc.Create(ctx, seller, in)
		require.NoError(t, err)
		require.False(t, a.AIVerified)
	})

	t.Run("video_listing_without_upload_uses_moderation", func(t *testing.T) {
		v := &stubVerifier{approved: true}
		f.svc.Verifier = v
		vin := in
		vin.MediaType = entity.MediaVideo
		a, err := f.svc.Create(ctx, seller, vin)
		require.NoError(t, err)
		require.True(t, a.AIVerified)
		require.Zero(t, v.videoCalls)
	})
}

// queueSpy records email jobs instead of handing them to RabbitMQ.
type queueSpy struct {
	jobs []mailer.EmailJob
}

func (q *queueSpy) PublishJSON(_ context.Context, body any) error {
	if job, ok := body.(mailer.EmailJob); ok {
		q.jobs = append(q.jobs, job)
	}
	return nil
}

func (q *queueSpy) byTemplate(name string) []mailer.EmailJob {
	var out []mailer.EmailJob
	for _, j := range q.jobs {
		if j.Template == name {
			out = append(out, j)
		}
	}
	return out
}

func TestClosureNotifiesWinnerAndLosers(t *testing.T) {
	f := newFixture(t)
	spy := &queueSpy{}
	f.svc.Publisher = spy
	ctx := context.Background()

	seller := f.user(t, "seller", "0")
	alice := f.user(t, "alice", "100")
	carol := f.user(t, "carol", "200")
	prod := f.auction(t, seller, "50", time.Hour)

	_, err := f.svc.PlaceBid(ctx, alice, prod, dec("60"))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, carol, prod, dec("80"))
	require.NoError(t, err)

	outbid := spy.byTemplate(mailer.TemplateOutbid)
	require.Len(t, outbid, 1)
	require.Equal(t, "alice@example.com", outbid[0].To)
	require.Equal(t, "80.00", outbid[0].Data["Amount"])

	_, err = f.svc.EndEarly(ctx, seller, prod)
	require.NoError(t, err)

	won := spy.byTemplate(mailer.TemplateAuctionWon)
	require.Len(t, won, 1)
	require.Equal(t, "carol@example.com", won[0].To)
	require.Equal(t, "80.00", won[0].Data["Amount"])
	require.Equal(t, "Test item", won[0].Data["Title"])

	refunds := spy.byTemplate(mailer.TemplateBidRefunded)
	require.Len(t, refunds, 1)
	require.Equal(t, "alice@example.com", refunds[0].To)
	require.Equal(t, "30.00", refunds[0].Data["Amount"])
}
