/*
SPDX-License-Identifier: Apache-2.0
*/

// Package raffle implements a bilateral NFT-for-NFT exchange. Both sides
// deposit their registered NFTs plus a coin commission; once every NFT has
// arrived the raffle swaps them and settles the commission with the super user.
package raffle

import (
	"sort"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

// settlement mode: carry the whole remaining balance, ignore errors
const settleMode = escrow.ModeCarryAllBalance | escrow.ModeIgnoreErrors

// Process applies one inbound message. A rejected message leaves st untouched.
func Process(st State, msg escrow.Message) (State, []escrow.Action, error) {
	next := st.clone()

	var actions []escrow.Action
	var err error
	switch body := msg.Body.(type) {
	case escrow.OwnershipAssigned:
		actions, err = next.nftReceived(msg, body)
	case escrow.AddCoins:
		err = next.addCoins(msg)
	case escrow.Cancel:
		actions, err = next.cancel(msg)
	case escrow.SendAgain:
		actions, err = next.sendAgain(msg)
	case escrow.Maintain:
		actions, err = next.maintain(msg, body)
	case nil:
		err = escrow.Errorf(escrow.KindUnknownOperation, escrow.ExitUnknownOp, "empty body")
	default:
		err = escrow.Errorf(escrow.KindUnknownOperation, escrow.ExitUnknownOp, "raffle does not handle %s", body.Op())
	}
	if err != nil {
		return st, nil, err
	}
	return next, actions, nil
}

func (s *State) nftReceived(msg escrow.Message, body escrow.OwnershipAssigned) ([]escrow.Action, error) {
	idx := s.indexOf(msg.Sender)
	if idx < 0 {
		// not one of ours
		return nil, nil
	}
	if s.Status != Active {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongState, "raffle is %s", s.Status)
	}

	var side Side
	switch body.PrevOwner {
	case s.LeftUser:
		side = Left
	case s.RightUser:
		side = Right
	default:
		return nil, nil
	}
	nft := &s.Nfts[idx]
	if nft.Status.Received() || nft.Status.Side() != side {
		return nil, nil
	}

	nft.Status = receivedStatus(side)
	nft.Seq = s.LeftNftsReceived + s.RightNftsReceived + 1
	credit := msg.Value.Sub(s.NftTransferFee).Sub(s.CommissionFee)
	if side == Left {
		s.LeftNftsReceived++
		s.LeftCoinsGot, _ = s.LeftCoinsGot.Add(credit)
	} else {
		s.RightNftsReceived++
		s.RightCoinsGot, _ = s.RightCoinsGot.Add(credit)
	}

	if s.LeftNftsReceived == s.LeftNftsCount && s.RightNftsReceived == s.RightNftsCount {
		return s.complete(), nil
	}
	return nil, nil
}

// complete swaps every NFT and settles the commissions
func (s *State) complete() []escrow.Action {
	s.Status = Completed

	actions := s.swapTransfers()
	actions = append(actions, escrow.ReserveCurrency(s.StorageReserve, escrow.ModeOrdinary))
	if surplus := s.LeftCoinsGot.Sub(s.LeftCommission); surplus > 0 {
		actions = append(actions, escrow.SendValue(s.LeftUser, surplus, escrow.ModeIgnoreErrors))
	}
	if surplus := s.RightCoinsGot.Sub(s.RightCommission); surplus > 0 {
		actions = append(actions, escrow.SendValue(s.RightUser, surplus, escrow.ModeIgnoreErrors))
	}
	return append(actions, escrow.SendValue(s.SuperUser, 0, settleMode))
}

func (s *State) addCoins(msg escrow.Message) error {
	if msg.Sender != s.LeftUser && msg.Sender != s.RightUser {
		return escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitWrongAddress, "%s is not a raffle side", msg.Sender)
	}
	if s.Status != Active {
		return escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongState, "raffle is %s", s.Status)
	}
	credit := msg.Value.Sub(s.CommissionFee)
	if msg.Sender == s.LeftUser {
		s.LeftCoinsGot, _ = s.LeftCoinsGot.Add(credit)
	} else {
		s.RightCoinsGot, _ = s.RightCoinsGot.Add(credit)
	}
	return nil
}

func (s *State) cancel(msg escrow.Message) ([]escrow.Action, error) {
	if msg.Sender != s.SuperUser {
		return nil, escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitWrongAddress, "only the super user can cancel")
	}
	if s.Status != Active {
		return nil, escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongState, "raffle is %s", s.Status)
	}
	s.Status = Canceled

	actions := s.returnTransfers()
	return append(actions,
		escrow.ReserveCurrency(s.StorageReserve, escrow.ModeOrdinary),
		escrow.SendValue(s.LeftUser, s.LeftCoinsGot, escrow.ModeIgnoreErrors),
		escrow.SendValue(s.RightUser, s.RightCoinsGot, escrow.ModeIgnoreErrors),
		escrow.SendValue(s.SuperUser, 0, settleMode),
	), nil
}

func (s *State) sendAgain(msg escrow.Message) ([]escrow.Action, error) {
	if err := s.checkMaintainer(msg); err != nil {
		return nil, err
	}
	var actions []escrow.Action
	if s.Status == Completed {
		actions = s.swapTransfers()
	} else {
		actions = s.returnTransfers()
	}
	if required, ok := s.NftTransferFee.Mul(uint64(len(actions))); !ok || msg.Value < required {
		return nil, escrow.Errorf(escrow.KindInsufficientValue, escrow.ExitInsufficientCoins, "resend needs %s, got %s", required, msg.Value)
	}
	return actions, nil
}

func (s *State) maintain(msg escrow.Message, body escrow.Maintain) ([]escrow.Action, error) {
	if err := s.checkMaintainer(msg); err != nil {
		return nil, err
	}
	if !body.Action.Valid() {
		return nil, escrow.Errorf(escrow.KindUnknownOperation, escrow.ExitUnknownOp, "malformed relayed action")
	}
	return []escrow.Action{body.Action}, nil
}

// checkMaintainer gates the recovery messages of a finished raffle
func (s *State) checkMaintainer(msg escrow.Message) error {
	if msg.Sender != s.SuperUser {
		return escrow.Errorf(escrow.KindUnauthorizedSender, escrow.ExitWrongAddress, "only the super user can maintain")
	}
	if s.Status == Active {
		return escrow.Errorf(escrow.KindWrongPhase, escrow.ExitWrongState, "raffle is still active")
	}
	return nil
}

// swapTransfers moves left NFTs to the right user and right NFTs to the left user
func (s *State) swapTransfers() []escrow.Action {
	var left, right []escrow.Action
	for _, nft := range s.received() {
		if nft.Status == LeftReceived {
			left = append(left, escrow.TransferNft(nft.Address, s.RightUser, s.NftTransferFee, escrow.ModeOrdinary, 0))
		} else {
			right = append(right, escrow.TransferNft(nft.Address, s.LeftUser, s.NftTransferFee, escrow.ModeOrdinary, 0))
		}
	}
	return append(left, right...)
}

// returnTransfers sends every received NFT back to its depositor
func (s *State) returnTransfers() []escrow.Action {
	var actions []escrow.Action
	for _, nft := range s.received() {
		owner := s.LeftUser
		if nft.Status == RightReceived {
			owner = s.RightUser
		}
		actions = append(actions, escrow.TransferNft(nft.Address, owner, s.NftTransferFee, escrow.ModePayFeesSeparately, 0))
	}
	return actions
}

// received lists received NFTs in receipt order
func (s *State) received() []Nft {
	var out []Nft
	for _, nft := range s.Nfts {
		if nft.Status.Received() {
			out = append(out, nft)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (s *State) indexOf(nft escrow.Address) int {
	for i := range s.Nfts {
		if s.Nfts[i].Address == nft {
			return i
		}
	}
	return -1
}
