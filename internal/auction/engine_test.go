/*
SPDX-License-Identifier: Apache-2.0
*/

package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

const (
	endTimestamp = int64(1655880000)
	createdAt    = endTimestamp - 60*60
)

var (
	nftAddress   = escrow.Address("nft")
	marketplace  = escrow.Address("marketplace")
	feeAddress   = escrow.Address("marketplace-fee")
	royaltyOwner = escrow.Address("royalty")
	seller       = escrow.Address("seller")
)

func coins(s string) escrow.Coins {
	return escrow.MustParseCoins(s)
}

func at(ts int64) time.Time {
	return time.Unix(ts, 0)
}

func defaultState() State {
	return State{
		MarketplaceFeeAddress: feeAddress,
		MarketplaceFeeFactor:  5,
		MarketplaceFeeBase:    100,
		RoyaltyAddress:        royaltyOwner,
		RoyaltyFactor:         20,
		RoyaltyBase:           100,
		MinBid:                coins("1"),
		MaxBid:                coins("100"),
		MinStep:               coins("1"),
		EndTimestamp:          endTimestamp,
		StepTimeSeconds:       60 * 5,
		TryStepTimeSeconds:    60 * 5,
		NftAddress:            nftAddress,
		End:                   true,
		MarketplaceAddress:    marketplace,
		CreatedAtTimestamp:    createdAt,
	}
}

// runningState has the NFT escrowed by seller
func runningState() State {
	st := defaultState()
	st.End = false
	st.Activated = true
	st.NftOwnerAddress = seller
	return st
}

func bid(from escrow.Address, amount string) escrow.Message {
	return escrow.Message{Sender: from, Value: coins(amount), Bounceable: true}
}

func stop(from escrow.Address) escrow.Message {
	return escrow.Message{Sender: from, Value: coins("1"), Bounceable: true, Body: escrow.Stop{}}
}

func cancel(from escrow.Address) escrow.Message {
	return escrow.Message{Sender: from, Value: coins("1"), Bounceable: true, Body: escrow.Cancel{}}
}

func findTransfer(actions []escrow.Action) *escrow.NftTransfer {
	for _, a := range actions {
		if a.To == nftAddress && a.Transfer != nil {
			return a.Transfer
		}
	}
	return nil
}

func sentTo(actions []escrow.Action, to escrow.Address) []escrow.Action {
	var out []escrow.Action
	for _, a := range actions {
		if a.To == to && a.Transfer == nil {
			out = append(out, a)
		}
	}
	return out
}

func TestSaleDataReflectsConfig(t *testing.T) {
	st := defaultState()
	data := st.SaleData()

	assert.True(t, data.End)
	assert.Equal(t, endTimestamp, data.EndTimestamp)
	assert.Equal(t, marketplace, data.MarketplaceAddress)
	assert.Equal(t, nftAddress, data.NftAddress)
	assert.True(t, data.NftOwnerAddress.IsZero())
	assert.Zero(t, data.LastBidAmount)
	assert.True(t, data.LastBidAddress.IsZero())
	assert.Equal(t, coins("1"), data.MinStep)
	assert.Equal(t, uint64(5), data.MarketplaceFeeFactor)
	assert.Equal(t, uint64(20), data.RoyaltyFactor)
	assert.Equal(t, coins("100"), data.MaxBid)
	assert.False(t, data.IsCanceled)
}

func TestDeployStartBidEnd(t *testing.T) {
	st := defaultState()
	prevOwner := escrow.Address("prev-owner")

	st, actions, err := Process(st, escrow.Message{
		Sender: nftAddress,
		Value:  coins("0.05"),
		Body:   escrow.OwnershipAssigned{PrevOwner: prevOwner},
	}, at(createdAt))
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.False(t, st.End)
	assert.Equal(t, endTimestamp, st.EndTimestamp)
	assert.Equal(t, prevOwner, st.NftOwnerAddress)
	assert.Zero(t, st.LastBidAt)

	buyer := escrow.Address("buyer")
	st, actions, err = Process(st, bid(buyer, "2"), at(createdAt+60))
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.Equal(t, buyer, st.LastBidAddress)
	assert.Equal(t, coins("2"), st.LastBidAmount)
	assert.Equal(t, createdAt+60, st.LastBidAt)
	assert.Equal(t, endTimestamp, st.EndTimestamp)

	buyer2 := escrow.Address("buyer2")
	st, actions, err = Process(st, bid(buyer2, "3"), at(createdAt+100))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, escrow.SendValue(buyer, coins("2"), payoutMode), actions[0])
	assert.Equal(t, buyer2, st.LastBidAddress)
	assert.Equal(t, coins("3"), st.LastBidAmount)
	assert.Equal(t, createdAt+100, st.LastBidAt)

	st, actions, err = Process(st, stop(buyer2), at(endTimestamp+60))
	require.NoError(t, err)

	transfer := findTransfer(actions)
	require.NotNil(t, transfer)
	assert.Equal(t, buyer2, transfer.NewOwner)
	assert.Equal(t, []escrow.Action{escrow.SendValue(prevOwner, coins("2.25"), payoutMode)}, sentTo(actions, prevOwner))
	assert.Equal(t, coins("0.6"), sentTo(actions, royaltyOwner)[0].Value)
	assert.Equal(t, coins("0.15"), sentTo(actions, feeAddress)[0].Value)

	assert.True(t, st.End)
	assert.False(t, st.IsCanceled)
	assert.Equal(t, prevOwner, st.NftOwnerAddress)
	assert.Equal(t, buyer2, st.LastBidAddress)
}

func TestBidRejections(t *testing.T) {
	tests := []struct {
		name  string
		state func() State
		now   int64
		value string
		kind  escrow.Kind
		code  escrow.ExitCode
	}{
		{name: "before nft arrives", state: defaultState, now: createdAt + 10, value: "2", kind: escrow.KindWrongPhase, code: escrow.ExitWrongTime},
		{name: "before start", state: runningState, now: createdAt - 1, value: "2", kind: escrow.KindWrongPhase, code: escrow.ExitWrongTime},
		{name: "after deadline", state: runningState, now: endTimestamp + 60*60, value: "4", kind: escrow.KindWrongPhase, code: escrow.ExitWrongTime},
		{name: "at deadline", state: runningState, now: endTimestamp, value: "4", kind: escrow.KindWrongPhase, code: escrow.ExitWrongTime},
		{name: "below min bid", state: runningState, now: createdAt + 10, value: "0.5", kind: escrow.KindBelowMinimum, code: escrow.ExitBidRejected},
		{name: "above max bid", state: runningState, now: createdAt + 10, value: "101", kind: escrow.KindAboveMaximum, code: escrow.ExitBidRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.state()
			next, actions, err := Process(st, bid("buyer", tt.value), at(tt.now))
			require.Error(t, err)
			assert.Equal(t, tt.kind, escrow.KindOf(err))
			assert.Equal(t, tt.code, escrow.ExitCodeOf(err))
			assert.Nil(t, actions)
			assert.Equal(t, st, next)
		})
	}
}

func TestBidBelowStepKeepsStandingBid(t *testing.T) {
	st := runningState()
	buyer := escrow.Address("buyer")

	st, actions, err := Process(st, bid(buyer, "2"), at(endTimestamp-10))
	require.NoError(t, err)
	assert.Empty(t, actions)

	before := st
	st, _, err = Process(st, bid("bad-buyer", "2.1"), at(endTimestamp-10))
	assert.ErrorIs(t, err, escrow.ErrBelowMinimum)
	assert.Equal(t, escrow.ExitBidRejected, escrow.ExitCodeOf(err))
	assert.Equal(t, before, st)
	assert.Equal(t, buyer, st.LastBidAddress)
}

func TestAntiSniping(t *testing.T) {
	st := runningState()

	next, actions, err := Process(st, bid("buyer", "2"), at(endTimestamp-10))
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.Equal(t, st.EndTimestamp+st.TryStepTimeSeconds, next.EndTimestamp)

	early, _, err := Process(st, bid("buyer", "2"), at(endTimestamp-st.StepTimeSeconds))
	require.NoError(t, err)
	assert.Equal(t, st.EndTimestamp, early.EndTimestamp)
}

func TestBidCannotWrapPastCeiling(t *testing.T) {
	st := runningState()
	st.MaxBid = 0
	st.MinStep = 2
	st.LastBidAddress = "buyer"
	st.LastBidAmount = escrow.Coins(^uint64(0) - 1)
	st.LastBidAt = createdAt + 1

	for _, value := range []escrow.Coins{1, escrow.Coins(^uint64(0))} {
		next, actions, err := Process(st, escrow.Message{Sender: "cheap", Value: value, Bounceable: true}, at(createdAt+10))
		assert.ErrorIs(t, err, escrow.ErrBelowMinimum)
		assert.Equal(t, escrow.ExitBidRejected, escrow.ExitCodeOf(err))
		assert.Nil(t, actions)
		assert.Equal(t, st, next)
	}
}

func TestBidSequenceIsMonotonic(t *testing.T) {
	st := runningState()
	st.MinBid = coins("1")
	st.MinStep = coins("1")
	st.MaxBid = 0

	now := createdAt
	var last escrow.Coins
	for i, amount := range []string{"2", "3", "5", "6.5", "100", "250"} {
		now += 10
		next, _, err := Process(st, bid(escrow.Address("buyer"), amount), at(now))
		require.NoError(t, err, "bid %d", i)
		assert.GreaterOrEqual(t, uint64(next.LastBidAmount), uint64(last+st.MinStep))
		assert.Equal(t, now, next.LastBidAt)
		last = next.LastBidAmount
		st = next
	}
	assert.False(t, st.End)
}

func TestStopWithNoBidReturnsNft(t *testing.T) {
	st := runningState()

	st, actions, err := Process(st, stop(seller), at(endTimestamp+60))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, seller, findTransfer(actions).NewOwner)
	assert.Empty(t, sentTo(actions, royaltyOwner))
	assert.Empty(t, sentTo(actions, feeAddress))
	assert.True(t, st.End)

	// settled auctions return bids even before the deadline
	_, _, err = Process(st, bid("buyer", "2"), at(endTimestamp-60))
	assert.Equal(t, escrow.ExitWrongTime, escrow.ExitCodeOf(err))
}

func TestOwnerStopsEarlyWithBid(t *testing.T) {
	st := runningState()
	buyer := escrow.Address("buyer")

	st, _, err := Process(st, bid(buyer, "2"), at(endTimestamp-60))
	require.NoError(t, err)

	st, actions, err := Process(st, stop(seller), at(endTimestamp-60))
	require.NoError(t, err)
	assert.Equal(t, buyer, findTransfer(actions).NewOwner)
	require.Len(t, sentTo(actions, royaltyOwner), 1)

	lb := st.LastBidAmount
	profit := lb - escrow.MulDiv(lb, st.RoyaltyFactor, st.RoyaltyBase) - escrow.MulDiv(lb, st.MarketplaceFeeFactor, st.MarketplaceFeeBase)
	payout := sentTo(actions, seller)
	require.Len(t, payout, 1)
	assert.LessOrEqual(t, uint64(payout[0].Value), uint64(profit))
	assert.GreaterOrEqual(t, uint64(payout[0].Value), uint64(profit-coins("0.05")))
}

func TestProcessingReserveIsKeptFromPayout(t *testing.T) {
	st := runningState()
	st.ProcessingReserve = coins("0.05")

	st, _, err := Process(st, bid("buyer", "2"), at(createdAt))
	require.NoError(t, err)
	_, actions, err := Process(st, stop(seller), at(createdAt))
	require.NoError(t, err)

	// 2 - 0.4 royalty - 0.1 fee - 0.05 reserve
	assert.Equal(t, coins("1.45"), sentTo(actions, seller)[0].Value)
}

func TestZeroFees(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{name: "zero base and factor", mutate: func(s *State) {
			s.RoyaltyBase, s.RoyaltyFactor = 0, 0
			s.MarketplaceFeeBase, s.MarketplaceFeeFactor = 0, 0
		}},
		{name: "zero factor only", mutate: func(s *State) {
			s.RoyaltyFactor = 0
			s.MarketplaceFeeFactor = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := runningState()
			tt.mutate(&st)

			st, _, err := Process(st, bid("buyer", "2"), at(createdAt))
			require.NoError(t, err)
			_, actions, err := Process(st, stop(seller), at(createdAt))
			require.NoError(t, err)

			assert.Empty(t, sentTo(actions, royaltyOwner))
			assert.Empty(t, sentTo(actions, feeAddress))
			assert.Equal(t, []escrow.Action{escrow.SendValue(seller, coins("2"), payoutMode)}, sentTo(actions, seller))
		})
	}
}

func TestCancel(t *testing.T) {
	for _, sender := range []escrow.Address{seller, marketplace} {
		t.Run(string(sender), func(t *testing.T) {
			st, actions, err := Process(runningState(), cancel(sender), at(endTimestamp-60))
			require.NoError(t, err)
			require.Len(t, actions, 1)
			assert.Equal(t, seller, findTransfer(actions).NewOwner)
			assert.Empty(t, sentTo(actions, royaltyOwner))
			assert.True(t, st.IsCanceled)
			assert.True(t, st.End)
		})
	}
}

func TestCancelWithBidRefundsBidder(t *testing.T) {
	st := runningState()
	bidder := escrow.Address("bidder")

	st, _, err := Process(st, bid(bidder, "2"), at(endTimestamp-60))
	require.NoError(t, err)
	assert.Equal(t, endTimestamp-60, st.LastBidAt)
	assert.Equal(t, escrow.Coins(2000000000), st.LastBidAmount)

	st, actions, err := Process(st, cancel(seller), at(endTimestamp-60))
	require.NoError(t, err)
	assert.True(t, st.IsCanceled)
	assert.Equal(t, seller, findTransfer(actions).NewOwner)
	assert.Empty(t, sentTo(actions, royaltyOwner))
	assert.Empty(t, sentTo(actions, feeAddress))
	assert.Equal(t, []escrow.Action{escrow.SendValue(bidder, coins("2"), payoutMode)}, sentTo(actions, bidder))
}

func TestCancelRejections(t *testing.T) {
	st := runningState()
	st, _, err := Process(st, bid("buyer", "2"), at(createdAt+1))
	require.NoError(t, err)

	_, _, err = Process(st, cancel("buyer"), at(createdAt+1))
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)
	assert.Equal(t, escrow.ExitUnauthorized, escrow.ExitCodeOf(err))

	_, _, err = Process(st, cancel(seller), at(endTimestamp))
	assert.ErrorIs(t, err, escrow.ErrWrongPhase)

	settled, _, err := Process(st, stop(seller), at(createdAt+2))
	require.NoError(t, err)
	_, _, err = Process(settled, cancel(seller), at(createdAt+3))
	assert.ErrorIs(t, err, escrow.ErrWrongPhase)
}

func TestStopFromBuyerWaitsForDeadline(t *testing.T) {
	st := runningState()
	buyer := escrow.Address("buyer")

	st, _, err := Process(st, bid(buyer, "2"), at(createdAt+1))
	require.NoError(t, err)
	assert.Equal(t, buyer, st.LastBidAddress)

	unchanged, actions, err := Process(st, stop(buyer), at(createdAt+1))
	assert.Equal(t, escrow.ExitUnauthorized, escrow.ExitCodeOf(err))
	assert.Nil(t, actions)
	assert.Equal(t, st, unchanged)

	_, _, err = Process(st, cancel(buyer), at(createdAt+1))
	assert.Equal(t, escrow.ExitUnauthorized, escrow.ExitCodeOf(err))

	st, actions, err = Process(st, stop(buyer), at(endTimestamp+60))
	require.NoError(t, err)
	assert.Equal(t, buyer, findTransfer(actions).NewOwner)
	assert.True(t, st.End)
}

func TestRepeatEnd(t *testing.T) {
	st := runningState()

	st, actions, err := Process(st, stop(seller), at(createdAt+60))
	require.NoError(t, err)
	assert.True(t, st.End)
	assert.Equal(t, seller, findTransfer(actions).NewOwner)

	// a repeated stop is a no-op
	again, actions, err := Process(st, stop(seller), at(createdAt+61))
	require.NoError(t, err)
	assert.Nil(t, findTransfer(actions))
	assert.Equal(t, st, again)

	repeat := escrow.Message{Sender: marketplace, Value: coins("1.1"), Bounceable: true, Body: escrow.RepeatEnd{}}
	_, actions, err = Process(st, repeat, at(createdAt+62))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, seller, findTransfer(actions).NewOwner)

	repeat.Sender = seller
	_, _, err = Process(st, repeat, at(createdAt+62))
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)
}

func TestRepeatEndAfterStopWithoutActivation(t *testing.T) {
	st := defaultState()
	st.End = false
	st.NftOwnerAddress = seller

	st, first, err := Process(st, stop(seller), at(createdAt+60))
	require.NoError(t, err)
	assert.True(t, st.End)
	assert.False(t, st.Activated)

	repeat := escrow.Message{Sender: marketplace, Value: coins("1.1"), Bounceable: true, Body: escrow.RepeatEnd{}}
	_, actions, err := Process(st, repeat, at(createdAt+61))
	require.NoError(t, err)
	assert.Equal(t, first, actions)
	assert.Equal(t, seller, findTransfer(actions).NewOwner)
}

func TestIdleAuctionRejectsStopAndRepeatEnd(t *testing.T) {
	st := defaultState()

	next, actions, err := Process(st, stop(seller), at(createdAt+10))
	assert.Equal(t, escrow.ExitWrongTime, escrow.ExitCodeOf(err))
	assert.Nil(t, actions)
	assert.Equal(t, st, next)

	_, _, err = Process(st, escrow.Message{Sender: marketplace, Body: escrow.RepeatEnd{}}, at(createdAt+10))
	assert.ErrorIs(t, err, escrow.ErrWrongPhase)
}

func TestRepeatEndTargetsWinner(t *testing.T) {
	st := runningState()
	st, _, err := Process(st, bid("winner", "5"), at(createdAt+1))
	require.NoError(t, err)
	st, first, err := Process(st, stop(seller), at(createdAt+2))
	require.NoError(t, err)

	_, actions, err := Process(st, escrow.Message{Sender: marketplace, Body: escrow.RepeatEnd{}}, at(createdAt+3))
	require.NoError(t, err)
	assert.Equal(t, findTransfer(first).NewOwner, findTransfer(actions).NewOwner)
	assert.Equal(t, escrow.Address("winner"), findTransfer(actions).NewOwner)

	_, _, err = Process(runningState(), escrow.Message{Sender: marketplace, Body: escrow.RepeatEnd{}}, at(createdAt+3))
	assert.ErrorIs(t, err, escrow.ErrWrongPhase)
}

func TestEmergencyMessage(t *testing.T) {
	relayed := escrow.Action{
		Kind:    escrow.KindSendMsg,
		Mode:    escrow.ModePayFeesSeparately,
		To:      marketplace,
		Value:   coins("0.666"),
		Payload: "0000022b",
	}
	msg := escrow.Message{Sender: marketplace, Value: coins("0.1"), Bounceable: true, Body: escrow.EmergencyMessage{Action: relayed}}

	st := defaultState()
	next, actions, err := Process(st, msg, at(createdAt))
	require.NoError(t, err)
	assert.Equal(t, []escrow.Action{relayed}, actions)
	assert.Equal(t, st, next)

	msg.Sender = seller
	_, _, err = Process(st, msg, at(createdAt))
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)

	msg.Sender = marketplace
	msg.Body = escrow.EmergencyMessage{}
	_, _, err = Process(st, msg, at(createdAt))
	assert.Equal(t, escrow.ExitUnknownOp, escrow.ExitCodeOf(err))
}

func TestMaxBidBuyout(t *testing.T) {
	st := runningState()
	st.MaxBid = coins("10")

	st, _, err := Process(st, bid("first", "2"), at(createdAt+1))
	require.NoError(t, err)

	st, actions, err := Process(st, bid("buyer", "10"), at(createdAt+2))
	require.NoError(t, err)
	assert.True(t, st.End)
	assert.Equal(t, escrow.Address("buyer"), findTransfer(actions).NewOwner)
	assert.Equal(t, coins("2"), sentTo(actions, "first")[0].Value)
	assert.Equal(t, coins("7.5"), sentTo(actions, seller)[0].Value)
}

func TestUnlimitedMaxBidKeepsAuctionOpen(t *testing.T) {
	st := runningState()
	st.MaxBid = 0

	st, _, err := Process(st, bid("buyer", "2"), at(createdAt+10))
	require.NoError(t, err)
	assert.False(t, st.End)
}

func TestOwnershipAssignedRejections(t *testing.T) {
	msg := escrow.Message{Sender: "someone", Body: escrow.OwnershipAssigned{PrevOwner: seller}}
	_, _, err := Process(defaultState(), msg, at(createdAt))
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)

	msg.Sender = nftAddress
	_, _, err = Process(runningState(), msg, at(createdAt))
	assert.ErrorIs(t, err, escrow.ErrWrongPhase)
}

func TestOwnershipAssignedRestartsCycle(t *testing.T) {
	st := runningState()
	st, _, err := Process(st, cancel(seller), at(createdAt+1))
	require.NoError(t, err)
	require.True(t, st.IsCanceled)

	st, _, err = Process(st, escrow.Message{Sender: nftAddress, Body: escrow.OwnershipAssigned{PrevOwner: "new-seller"}}, at(createdAt+2))
	require.NoError(t, err)
	assert.False(t, st.End)
	assert.False(t, st.IsCanceled)
	assert.Equal(t, escrow.Address("new-seller"), st.NftOwnerAddress)
}

func TestRaffleBodiesAreUnknown(t *testing.T) {
	_, _, err := Process(runningState(), escrow.Message{Sender: seller, Body: escrow.AddCoins{}}, at(createdAt))
	assert.ErrorIs(t, err, escrow.ErrUnknownOperation)
	assert.Equal(t, escrow.ExitUnknownOp, escrow.ExitCodeOf(err))
}

func TestValidate(t *testing.T) {
	require.NoError(t, defaultState().Validate())

	st := defaultState()
	st.RoyaltyFactor = 96
	assert.Error(t, st.Validate())

	st = defaultState()
	st.EndTimestamp = st.CreatedAtTimestamp
	assert.Error(t, st.Validate())

	st = defaultState()
	st.NftAddress = ""
	assert.Error(t, st.Validate())

	// products of the fee fractions must not wrap
	st = defaultState()
	st.RoyaltyFactor, st.RoyaltyBase = 1<<32, 1<<32
	st.MarketplaceFeeFactor, st.MarketplaceFeeBase = 1<<32, 1<<32
	assert.Error(t, st.Validate())

	st.MarketplaceFeeFactor = 0
	assert.NoError(t, st.Validate())
}
