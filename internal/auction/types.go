/*
SPDX-License-Identifier: Apache-2.0
*/

package auction

import (
	"fmt"
	"math/big"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

// State is the persisted record of one auction
type State struct {
	MarketplaceFeeAddress escrow.Address `json:"marketplaceFeeAddress"`
	MarketplaceFeeFactor  uint64         `json:"marketplaceFeeFactor"`
	MarketplaceFeeBase    uint64         `json:"marketplaceFeeBase"` // 0 disables the marketplace fee
	RoyaltyAddress        escrow.Address `json:"royaltyAddress"`
	RoyaltyFactor         uint64         `json:"royaltyFactor"`
	RoyaltyBase           uint64         `json:"royaltyBase"` // 0 disables the royalty

	MinBid             escrow.Coins `json:"minBid"`
	MaxBid             escrow.Coins `json:"maxBid"` // 0 means unlimited
	MinStep            escrow.Coins `json:"minStep"`
	StepTimeSeconds    int64        `json:"stepTimeSeconds"`    // anti-sniping window
	TryStepTimeSeconds int64        `json:"tryStepTimeSeconds"` // deadline extension
	ProcessingReserve  escrow.Coins `json:"processingReserve"`  // kept back from the seller payout

	EndTimestamp       int64 `json:"endTimestamp"`
	CreatedAtTimestamp int64 `json:"createdAtTimestamp"`

	MarketplaceAddress escrow.Address `json:"marketplaceAddress"`
	NftAddress         escrow.Address `json:"nftAddress"`
	NftOwnerAddress    escrow.Address `json:"nftOwnerAddress"` // set once the NFT is escrowed

	LastBidAddress escrow.Address `json:"lastBidAddress"`
	LastBidAmount  escrow.Coins   `json:"lastBidAmount"`
	LastBidAt      int64          `json:"lastBidAt"`

	End        bool `json:"end"` // no NFT escrowed yet, or settled
	Activated  bool `json:"activated"`
	IsCanceled bool `json:"isCanceled"`
}

// SaleData is the read model returned by getSaleData
type SaleData struct {
	End                   bool           `json:"end"`
	EndTimestamp          int64          `json:"endTimestamp"`
	MarketplaceAddress    escrow.Address `json:"marketplaceAddress"`
	NftAddress            escrow.Address `json:"nftAddress"`
	NftOwnerAddress       escrow.Address `json:"nftOwnerAddress"`
	LastBidAmount         escrow.Coins   `json:"lastBidAmount"`
	LastBidAddress        escrow.Address `json:"lastBidAddress"`
	LastBidAt             int64          `json:"lastBidAt"`
	MinBid                escrow.Coins   `json:"minBid"`
	MaxBid                escrow.Coins   `json:"maxBid"`
	MinStep               escrow.Coins   `json:"minStep"`
	StepTimeSeconds       int64          `json:"stepTimeSeconds"`
	TryStepTimeSeconds    int64          `json:"tryStepTimeSeconds"`
	MarketplaceFeeAddress escrow.Address `json:"marketplaceFeeAddress"`
	MarketplaceFeeFactor  uint64         `json:"marketplaceFeeFactor"`
	MarketplaceFeeBase    uint64         `json:"marketplaceFeeBase"`
	RoyaltyAddress        escrow.Address `json:"royaltyAddress"`
	RoyaltyFactor         uint64         `json:"royaltyFactor"`
	RoyaltyBase           uint64         `json:"royaltyBase"`
	CreatedAtTimestamp    int64          `json:"createdAtTimestamp"`
	Activated             bool           `json:"activated"`
	IsCanceled            bool           `json:"isCanceled"`
}

// SaleData snapshots the state for readers
func (s State) SaleData() SaleData {
	return SaleData{
		End:                   s.End,
		EndTimestamp:          s.EndTimestamp,
		MarketplaceAddress:    s.MarketplaceAddress,
		NftAddress:            s.NftAddress,
		NftOwnerAddress:       s.NftOwnerAddress,
		LastBidAmount:         s.LastBidAmount,
		LastBidAddress:        s.LastBidAddress,
		LastBidAt:             s.LastBidAt,
		MinBid:                s.MinBid,
		MaxBid:                s.MaxBid,
		MinStep:               s.MinStep,
		StepTimeSeconds:       s.StepTimeSeconds,
		TryStepTimeSeconds:    s.TryStepTimeSeconds,
		MarketplaceFeeAddress: s.MarketplaceFeeAddress,
		MarketplaceFeeFactor:  s.MarketplaceFeeFactor,
		MarketplaceFeeBase:    s.MarketplaceFeeBase,
		RoyaltyAddress:        s.RoyaltyAddress,
		RoyaltyFactor:         s.RoyaltyFactor,
		RoyaltyBase:           s.RoyaltyBase,
		CreatedAtTimestamp:    s.CreatedAtTimestamp,
		Activated:             s.Activated,
		IsCanceled:            s.IsCanceled,
	}
}

// Validate checks a freshly configured auction
func (s State) Validate() error {
	if s.NftAddress.IsZero() {
		return fmt.Errorf("nftAddress is required")
	}
	if s.MarketplaceAddress.IsZero() {
		return fmt.Errorf("marketplaceAddress is required")
	}
	if s.RoyaltyBase != 0 && s.RoyaltyAddress.IsZero() {
		return fmt.Errorf("royaltyAddress is required when royaltyBase is set")
	}
	if s.MarketplaceFeeBase != 0 && s.MarketplaceFeeAddress.IsZero() {
		return fmt.Errorf("marketplaceFeeAddress is required when marketplaceFeeBase is set")
	}
	if s.RoyaltyFactor > s.RoyaltyBase || s.MarketplaceFeeFactor > s.MarketplaceFeeBase {
		return fmt.Errorf("fee factor cannot exceed its base")
	}
	if s.RoyaltyBase != 0 && s.MarketplaceFeeBase != 0 {
		// both fractions together must not exceed the whole bid
		total := new(big.Int).Mul(bigUint(s.RoyaltyFactor), bigUint(s.MarketplaceFeeBase))
		total.Add(total, new(big.Int).Mul(bigUint(s.MarketplaceFeeFactor), bigUint(s.RoyaltyBase)))
		if total.Cmp(new(big.Int).Mul(bigUint(s.RoyaltyBase), bigUint(s.MarketplaceFeeBase))) > 0 {
			return fmt.Errorf("royalty and marketplace fee exceed 100%%")
		}
	}
	if s.MaxBid != 0 && s.MaxBid < s.MinBid {
		return fmt.Errorf("maxBid must be 0 or at least minBid")
	}
	if s.EndTimestamp <= s.CreatedAtTimestamp {
		return fmt.Errorf("endTimestamp must be after createdAtTimestamp")
	}
	if s.StepTimeSeconds < 0 || s.TryStepTimeSeconds < 0 {
		return fmt.Errorf("step times cannot be negative")
	}
	return nil
}

func bigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func (s State) hasBid() bool {
	return !s.LastBidAddress.IsZero()
}
