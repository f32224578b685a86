/*
SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/auction"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/raffle"
)

// Receipt describes one accepted message, it is emitted as an event and returned to the submitter
type Receipt struct {
	Contract  string          `json:"contract"` // auction or raffle
	ID        string          `json:"id"`
	TxID      string          `json:"txId"`
	Op        escrow.Op       `json:"op"`
	Sender    escrow.Address  `json:"sender"`
	Value     escrow.Coins    `json:"value"`
	Timestamp int64           `json:"timestamp"` // unix seconds of the transaction
	Actions   []escrow.Action `json:"actions"`   // outbound actions in emission order
	StateHash string          `json:"stateHash"` // hex SHA3-256 of the stored record
}

// AuctionConfig is the input of CreateAuction. Coin amounts are decimal strings.
type AuctionConfig struct {
	MarketplaceAddress    escrow.Address `json:"marketplaceAddress"` // defaults to the creator
	NftAddress            escrow.Address `json:"nftAddress"`
	MarketplaceFeeAddress escrow.Address `json:"marketplaceFeeAddress"`
	MarketplaceFeeFactor  uint64         `json:"marketplaceFeeFactor"`
	MarketplaceFeeBase    uint64         `json:"marketplaceFeeBase"`
	RoyaltyAddress        escrow.Address `json:"royaltyAddress"`
	RoyaltyFactor         uint64         `json:"royaltyFactor"`
	RoyaltyBase           uint64         `json:"royaltyBase"`
	MinBid                string         `json:"minBid"`
	MaxBid                string         `json:"maxBid"`
	MinStep               string         `json:"minStep"`
	StepTimeSeconds       int64          `json:"stepTimeSeconds"`
	TryStepTimeSeconds    int64          `json:"tryStepTimeSeconds"`
	ProcessingReserve     string         `json:"processingReserve"`
	EndTimestamp          int64          `json:"endTimestamp"`
	CreatedAtTimestamp    int64          `json:"createdAtTimestamp"` // defaults to the transaction time
}

// RaffleConfig is the input of CreateRaffle. Coin amounts are decimal strings.
type RaffleConfig struct {
	LeftUser        escrow.Address   `json:"leftUser"`
	RightUser       escrow.Address   `json:"rightUser"`
	SuperUser       escrow.Address   `json:"superUser"` // defaults to the creator
	LeftNfts        []escrow.Address `json:"leftNfts"`
	RightNfts       []escrow.Address `json:"rightNfts"`
	LeftCommission  string           `json:"leftCommission"`
	RightCommission string           `json:"rightCommission"`
	NftTransferFee  string           `json:"nftTransferFee"`
	CommissionFee   string           `json:"commissionFee"`
	StorageReserve  string           `json:"storageReserve"`
}

// AuctionEntry is one element of ListAuctions
type AuctionEntry struct {
	ID       string           `json:"id"`
	SaleData auction.SaleData `json:"saleData"`
}

// RaffleEntry is one element of ListRaffles
type RaffleEntry struct {
	ID    string          `json:"id"`
	State raffle.Snapshot `json:"state"`
}
