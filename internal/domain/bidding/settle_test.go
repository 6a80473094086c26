package bidding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
)

func bid(id, userID, amount string, at time.Time) entity.Bid {
	return entity.Bid{ID: id, ProductID: "prod1", UserID: userID, Amount: dec(amount), CreatedAt: at}
}

func TestSettleNoBids(t *testing.T) {
	s := Settle(nil)
	require.Empty(t, s.WinnerID)
	require.Nil(t, s.WinningBid)
	require.Empty(t, s.Refunds)
}

func TestSettleHighestBidWins(t *testing.T) {
	t0 := time.Now().UTC()
	s := Settle([]entity.Bid{
		bid("b1", "alice", "60", t0),
		bid("b2", "carol", "80", t0.Add(time.Minute)),
	})

	require.Equal(t, "carol", s.WinnerID)
	require.Equal(t, "b2", s.WinningBid.ID)
	require.Len(t, s.Refunds, 1)
	require.Equal(t, "alice", s.Refunds[0].UserID)
	require.True(t, dec("30").Equal(s.Refunds[0].Amount))
}

func TestSettleEarliestWinsTie(t *testing.T) {
	t0 := time.Now().UTC()
	s := Settle([]entity.Bid{
		bid("b1", "alice", "100", t0.Add(time.Minute)),
		bid("b2", "bob", "100", t0),
	})

	require.Equal(t, "bob", s.WinnerID)
	require.Len(t, s.Refunds, 1)
	require.Equal(t, "alice", s.Refunds[0].UserID)
}

func TestSettleRetainsWinnersEarlierBids(t *testing.T) {
	t0 := time.Now().UTC()
	s := Settle([]entity.Bid{
		bid("b1", "alice", "60", t0),
		bid("b2", "carol", "70", t0.Add(time.Minute)),
		bid("b3", "carol", "90", t0.Add(2*time.Minute)),
	})

	require.Equal(t, "carol", s.WinnerID)
	// carol's lower bid b2 is not refunded; only alice gets money back
	require.Len(t, s.Refunds, 1)
	require.Equal(t, "b1", s.Refunds[0].BidID)
}

func TestSettleRefundTotal(t *testing.T) {
	t0 := time.Now().UTC()
	s := Settle([]entity.Bid{
		bid("b1", "alice", "60", t0),
		bid("b2", "bob", "70", t0.Add(time.Minute)),
		bid("b3", "carol", "90", t0.Add(2*time.Minute)),
	})

	// alice 30 + bob 35
	require.True(t, dec("65").Equal(s.RefundTotal()))
}
