/*
SPDX-License-Identifier: Apache-2.0
*/

package raffle

import (
	"fmt"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

// Status of a raffle
type Status int

const (
	_         Status = iota
	Active           // waiting for NFTs
	Canceled         // NFTs returned to depositors
	Completed        // NFTs swapped
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Canceled:
		return "canceled"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Side of the exchange
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// NftStatus tracks one registered NFT
type NftStatus string

const (
	LeftNotReceived  NftStatus = "left not received"
	RightNotReceived NftStatus = "right not received"
	LeftReceived     NftStatus = "left received"
	RightReceived    NftStatus = "right received"
)

// Side returns the side the NFT is registered for
func (s NftStatus) Side() Side {
	if s == LeftNotReceived || s == LeftReceived {
		return Left
	}
	return Right
}

// Received reports whether custody of the NFT reached the raffle
func (s NftStatus) Received() bool {
	return s == LeftReceived || s == RightReceived
}

func receivedStatus(side Side) NftStatus {
	if side == Left {
		return LeftReceived
	}
	return RightReceived
}

// Nft is one entry of the registry
type Nft struct {
	Address escrow.Address `json:"address"`
	Status  NftStatus      `json:"status"`
	Seq     int            `json:"seq"` // receipt order, 0 until received
}

// State is the persisted record of one raffle
type State struct {
	Status    Status         `json:"state"`
	LeftUser  escrow.Address `json:"leftUser"`
	RightUser escrow.Address `json:"rightUser"`
	SuperUser escrow.Address `json:"superUser"`

	LeftNftsCount     int `json:"leftNftsCount"`
	RightNftsCount    int `json:"rightNftsCount"`
	LeftNftsReceived  int `json:"leftNftsReceived"`
	RightNftsReceived int `json:"rightNftsReceived"`

	LeftCommission  escrow.Coins `json:"leftCommission"`
	RightCommission escrow.Coins `json:"rightCommission"`
	LeftCoinsGot    escrow.Coins `json:"leftCoinsGot"`
	RightCoinsGot   escrow.Coins `json:"rightCoinsGot"`

	NftTransferFee escrow.Coins `json:"nftTransferFee"`
	CommissionFee  escrow.Coins `json:"commissionFee"`  // deducted from every credit
	StorageReserve escrow.Coins `json:"storageReserve"` // amount of the reserve action

	Nfts []Nft `json:"nfts"`
}

// New builds an active raffle. left and right list the NFTs each side must deposit.
func New(leftUser, rightUser, superUser escrow.Address, left, right []escrow.Address) State {
	st := State{
		Status:         Active,
		LeftUser:       leftUser,
		RightUser:      rightUser,
		SuperUser:      superUser,
		LeftNftsCount:  len(left),
		RightNftsCount: len(right),
	}
	for _, a := range left {
		st.Nfts = append(st.Nfts, Nft{Address: a, Status: LeftNotReceived})
	}
	for _, a := range right {
		st.Nfts = append(st.Nfts, Nft{Address: a, Status: RightNotReceived})
	}
	return st
}

// Validate checks a freshly configured raffle
func (s State) Validate() error {
	if s.Status != Active {
		return fmt.Errorf("raffle must start active")
	}
	if s.LeftUser.IsZero() || s.RightUser.IsZero() || s.SuperUser.IsZero() {
		return fmt.Errorf("leftUser, rightUser and superUser are required")
	}
	if s.LeftUser == s.RightUser {
		return fmt.Errorf("leftUser and rightUser must differ")
	}
	if s.LeftNftsCount+s.RightNftsCount == 0 {
		return fmt.Errorf("raffle has no nfts")
	}
	seen := make(map[escrow.Address]bool, len(s.Nfts))
	left, right := 0, 0
	for _, nft := range s.Nfts {
		if nft.Address.IsZero() {
			return fmt.Errorf("nft address is required")
		}
		if seen[nft.Address] {
			return fmt.Errorf("nft %s registered twice", nft.Address)
		}
		seen[nft.Address] = true
		switch nft.Status {
		case LeftNotReceived:
			left++
		case RightNotReceived:
			right++
		default:
			return fmt.Errorf("nft %s has status %q", nft.Address, nft.Status)
		}
	}
	if left != s.LeftNftsCount || right != s.RightNftsCount {
		return fmt.Errorf("registry holds %d/%d nfts, expected %d/%d", left, right, s.LeftNftsCount, s.RightNftsCount)
	}
	return nil
}

// Snapshot is the read model returned by getRaffleState
type Snapshot struct {
	State               Status                       `json:"state"`
	LeftUser            escrow.Address               `json:"leftUser"`
	RightUser           escrow.Address               `json:"rightUser"`
	SuperUser           escrow.Address               `json:"superUser"`
	LeftNftsCount       int                          `json:"leftNftsCount"`
	RightNftsCount      int                          `json:"rightNftsCount"`
	LeftNftsReceived    int                          `json:"leftNftsReceived"`
	RightNftsReceived   int                          `json:"rightNftsReceived"`
	LeftCommission      escrow.Coins                 `json:"leftCommission"`
	RightCommission     escrow.Coins                 `json:"rightCommission"`
	LeftCoinsGot        escrow.Coins                 `json:"leftCoinsGot"`
	RightCoinsGot       escrow.Coins                 `json:"rightCoinsGot"`
	LeftCommissionOwed  escrow.Coins                 `json:"leftCommissionOwed"`
	RightCommissionOwed escrow.Coins                 `json:"rightCommissionOwed"`
	NftTransferFee      escrow.Coins                 `json:"nftTransferFee"`
	Nfts                map[escrow.Address]NftStatus `json:"nfts"`
}

// Snapshot copies the state for readers
func (s State) Snapshot() Snapshot {
	nfts := make(map[escrow.Address]NftStatus, len(s.Nfts))
	for _, nft := range s.Nfts {
		nfts[nft.Address] = nft.Status
	}
	return Snapshot{
		State:               s.Status,
		LeftUser:            s.LeftUser,
		RightUser:           s.RightUser,
		SuperUser:           s.SuperUser,
		LeftNftsCount:       s.LeftNftsCount,
		RightNftsCount:      s.RightNftsCount,
		LeftNftsReceived:    s.LeftNftsReceived,
		RightNftsReceived:   s.RightNftsReceived,
		LeftCommission:      s.LeftCommission,
		RightCommission:     s.RightCommission,
		LeftCoinsGot:        s.LeftCoinsGot,
		RightCoinsGot:       s.RightCoinsGot,
		LeftCommissionOwed:  s.LeftCommission.Sub(s.LeftCoinsGot),
		RightCommissionOwed: s.RightCommission.Sub(s.RightCoinsGot),
		NftTransferFee:      s.NftTransferFee,
		Nfts:                nfts,
	}
}

func (s State) clone() State {
	c := s
	c.Nfts = append([]Nft(nil), s.Nfts...)
	return c
}
