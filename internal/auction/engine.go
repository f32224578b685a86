/*
SPDX-License-Identifier: Apache-2.0
*/

// Package auction implements a time-boxed English auction over one escrowed NFT.
//
// Process is a pure transition: it never reads a clock or performs I/O, and a
// rejected message returns the input state and no actions.
package auction

import (
	"time"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

// payout mode for seller, royalty, marketplace and refunds
const payoutMode = escrow.ModePayFeesSeparately | escrow.ModeIgnoreErrors

// Process applies one inbound message at time now
func Process(st State, msg escrow.Message, now time.Time) (State, []escrow.Action, error) {
	next := st
	ts := now.Unix()

	var actions []escrow.Action
	var err error
	switch body := msg.Body.(type) {
	case nil, escrow.Bid:
		actions, err = next.bid(msg, ts)
	case escrow.OwnershipAssigned:
		actions, err = next.ownershipAssigned(msg, body)
	case escrow.Stop:
		actions, err = next.stop(msg, ts)
	case escrow.Cancel:
		actions, err = next.cancel(msg, ts)
	case escrow.RepeatEnd:
		actions, err = next.repeatEnd(msg)
	case escrow.EmergencyMessage:
		actions, err = next.emergency(msg, body)
	default:
		err = escrow.Errorf(escrow.KindUnknownOperation, escrow.ExitUnknownOp, "auction does not handle %s", body.Op())
	}
	if err != nil {
		return st, nil, err
	}
	return next, actions, nil
}

func (s *State) ownershipAssigned(msg escrow.Message, body escrow.OwnershipAssigned) ([]escrow.Action, error) {
	if msg.Sender != s.NftAddress {
		return nil, escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitUnauthorized, "ownership notification from %s, expected %s", msg.Sender, s.NftAddress)
	}
	if !s.End {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "nft is already escrowed")
	}
	if body.PrevOwner.IsZero() {
		return nil, escrow.Errorf(escrow.KindUnknownEntity, escrow.ExitUnknownOp, "ownership notification without previous owner")
	}

	s.NftOwnerAddress = body.PrevOwner
	s.End = false
	s.Activated = true
	s.IsCanceled = false
	s.LastBidAddress = ""
	s.LastBidAmount = 0
	s.LastBidAt = 0
	return nil, nil
}

func (s *State) bid(msg escrow.Message, ts int64) ([]escrow.Action, error) {
	if s.End {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction is not running")
	}
	if ts < s.CreatedAtTimestamp {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction starts at %d", s.CreatedAtTimestamp)
	}
	if ts >= s.EndTimestamp {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction ended at %d", s.EndTimestamp)
	}
	if s.MaxBid != 0 && msg.Value > s.MaxBid {
		return nil, escrow.Errorf(escrow.KindAboveMaximum, escrow.ExitBidRejected, "bid %s above max bid %s", msg.Value, s.MaxBid)
	}
	if minimum, ok := s.minimumBid(); !ok || msg.Value < minimum {
		return nil, escrow.Errorf(escrow.KindBelowMinimum, escrow.ExitBidRejected, "bid %s below minimum %s", msg.Value, minimum)
	}

	var actions []escrow.Action
	if s.hasBid() {
		actions = append(actions, escrow.SendValue(s.LastBidAddress, s.LastBidAmount, payoutMode))
	}

	s.LastBidAddress = msg.Sender
	s.LastBidAmount = msg.Value
	s.LastBidAt = ts

	if s.MaxBid != 0 && msg.Value == s.MaxBid {
		return append(actions, s.settle()...), nil
	}

	// anti-sniping
	if s.EndTimestamp-ts < s.StepTimeSeconds {
		s.EndTimestamp += s.TryStepTimeSeconds
	}
	return actions, nil
}

// minimumBid is the smallest acceptable next bid. ok is false when no amount can beat the standing bid.
func (s *State) minimumBid() (escrow.Coins, bool) {
	if !s.hasBid() {
		return s.MinBid, true
	}
	step, ok := s.LastBidAmount.Add(s.MinStep)
	if !ok {
		return step, false
	}
	if step < s.MinBid {
		return s.MinBid, true
	}
	return step, true
}

func (s *State) stop(msg escrow.Message, ts int64) ([]escrow.Action, error) {
	if s.End {
		if s.NftOwnerAddress.IsZero() {
			return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction has not started")
		}
		// already settled
		return nil, nil
	}
	if !s.isPrivileged(msg.Sender) && ts < s.EndTimestamp {
		return nil, escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitUnauthorized, "only the owner or marketplace can stop before %d", s.EndTimestamp)
	}
	return s.settle(), nil
}

func (s *State) cancel(msg escrow.Message, ts int64) ([]escrow.Action, error) {
	if !s.isPrivileged(msg.Sender) {
		return nil, escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitUnauthorized, "only the owner or marketplace can cancel")
	}
	if s.End {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction is not running")
	}
	if s.hasBid() && ts >= s.EndTimestamp {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction has a winner")
	}

	var actions []escrow.Action
	if s.hasBid() {
		actions = append(actions, escrow.SendValue(s.LastBidAddress, s.LastBidAmount, payoutMode))
	}
	actions = append(actions, s.nftTransfer(s.NftOwnerAddress))

	s.IsCanceled = true
	s.End = true
	return actions, nil
}

func (s *State) repeatEnd(msg escrow.Message) ([]escrow.Action, error) {
	if msg.Sender != s.MarketplaceAddress {
		return nil, escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitUnauthorized, "only the marketplace can repeat the end")
	}
	if !s.End || s.NftOwnerAddress.IsZero() {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongTime, "auction has not been settled")
	}
	return []escrow.Action{s.nftTransfer(s.recipient())}, nil
}

func (s *State) emergency(msg escrow.Message, body escrow.EmergencyMessage) ([]escrow.Action, error) {
	if msg.Sender != s.MarketplaceAddress {
		return nil, escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitUnauthorized, "only the marketplace can relay messages")
	}
	if !body.Action.Valid() {
		return nil, escrow.Errorf(escrow.KindUnknownOperation, escrow.ExitUnknownOp, "malformed relayed action")
	}
	return []escrow.Action{body.Action}, nil
}

// settle ends the auction and pays everyone out
func (s *State) settle() []escrow.Action {
	s.End = true
	if !s.hasBid() {
		return []escrow.Action{s.nftTransfer(s.NftOwnerAddress)}
	}

	amount := s.LastBidAmount
	royalty := escrow.MulDiv(amount, s.RoyaltyFactor, s.RoyaltyBase)
	fee := escrow.MulDiv(amount, s.MarketplaceFeeFactor, s.MarketplaceFeeBase)
	profit := amount.Sub(royalty).Sub(fee).Sub(s.ProcessingReserve)

	var actions []escrow.Action
	if royalty > 0 {
		actions = append(actions, escrow.SendValue(s.RoyaltyAddress, royalty, payoutMode))
	}
	if fee > 0 {
		actions = append(actions, escrow.SendValue(s.MarketplaceFeeAddress, fee, payoutMode))
	}
	if profit > 0 {
		actions = append(actions, escrow.SendValue(s.NftOwnerAddress, profit, payoutMode))
	}
	return append(actions, s.nftTransfer(s.LastBidAddress))
}

// recipient is whoever received the NFT at settlement
func (s *State) recipient() escrow.Address {
	if s.IsCanceled || !s.hasBid() {
		return s.NftOwnerAddress
	}
	return s.LastBidAddress
}

func (s *State) nftTransfer(newOwner escrow.Address) escrow.Action {
	return escrow.TransferNft(s.NftAddress, newOwner, 0, escrow.ModeCarryAllBalance, 0)
}

func (s *State) isPrivileged(sender escrow.Address) bool {
	return sender == s.MarketplaceAddress || (!s.NftOwnerAddress.IsZero() && sender == s.NftOwnerAddress)
}
