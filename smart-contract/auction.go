/*
SPDX-License-Identifier: Apache-2.0
*/

// Package chaincode exposes the auction and raffle engines as Hyperledger
// Fabric contracts. Every submitted transaction is one inbound message: the
// submitting client is the sender, the value argument is the attached coin
// amount and the transaction timestamp is the engine's clock.
package chaincode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"go.uber.org/zap"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/auction"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

// AuctionContract runs English auctions for escrowed NFTs
type AuctionContract struct {
	contractapi.Contract
}

// NewAuctionContract returns the contract registered under the name "auction"
func NewAuctionContract() *AuctionContract {
	c := new(AuctionContract)
	c.Name = auctionObjectType
	c.Info.Title = "NFT auction"
	c.Info.Version = "1.0.0"
	return c
}

/**************** MARKETPLACE METHODS ****************/

// CreateAuction stores a new auction waiting for its NFT
func (s *AuctionContract) CreateAuction(ctx contractapi.TransactionContextInterface, auctionID string, configJSON string) error {
	// get ID of submitting client
	clientID, errClientID := getSubmittingClientIdentity(ctx)
	if errClientID != nil {
		return fmt.Errorf("failed to get client identity: %v", errClientID)
	}

	// check if such an auction already exists
	auctionExists, errAuctionExist := doesRecordExist(ctx, auctionObjectType, auctionID)
	if errAuctionExist != nil {
		return fmt.Errorf("failed to check if an auction with the same id already exists: %v", errAuctionExist)
	}
	if auctionExists {
		return fmt.Errorf("auction %s already exists", auctionID)
	}

	var cfg AuctionConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return fmt.Errorf("invalid auction config: %v", err)
	}
	now, err := transactionTime(ctx)
	if err != nil {
		return err
	}
	st, err := cfg.state(clientID, now)
	if err != nil {
		return fmt.Errorf("invalid auction config: %w", err)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid auction config: %w", err)
	}

	if err := putRecord(ctx, auctionObjectType, auctionID, st); err != nil {
		return fmt.Errorf("could not save the new auction in the world state: %v", err)
	}

	zap.L().With(
		zap.String("auction", auctionID),
		zap.String("marketplace", string(st.MarketplaceAddress)),
		zap.String("nft", string(st.NftAddress)),
	).Info("auction created")
	return nil
}

// RepeatEnd re-sends the NFT transfer of a settled auction
func (s *AuctionContract) RepeatEnd(ctx contractapi.TransactionContextInterface, auctionID string, value string) (*Receipt, error) {
	return s.submit(ctx, auctionID, value, escrow.RepeatEnd{})
}

// EmergencyMessage relays an arbitrary outbound action on behalf of the marketplace
func (s *AuctionContract) EmergencyMessage(ctx contractapi.TransactionContextInterface, auctionID string, value string, actionJSON string) (*Receipt, error) {
	action, err := parseAction(actionJSON)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, auctionID, value, escrow.EmergencyMessage{Action: action})
}

/**************** NFT METHODS ****************/

// OwnershipAssigned is sent by the NFT once the auction became its owner
func (s *AuctionContract) OwnershipAssigned(ctx contractapi.TransactionContextInterface, auctionID string, value string, prevOwner string) (*Receipt, error) {
	return s.submit(ctx, auctionID, value, escrow.OwnershipAssigned{PrevOwner: escrow.Address(prevOwner)})
}

/**************** SELLER METHODS ****************/

// Stop settles the auction, the owner may stop early
func (s *AuctionContract) Stop(ctx contractapi.TransactionContextInterface, auctionID string, value string) (*Receipt, error) {
	return s.submit(ctx, auctionID, value, escrow.Stop{})
}

// Cancel aborts the auction and returns the NFT to its owner
func (s *AuctionContract) Cancel(ctx contractapi.TransactionContextInterface, auctionID string, value string) (*Receipt, error) {
	return s.submit(ctx, auctionID, value, escrow.Cancel{})
}

/**************** BUYER METHODS ****************/

// PlaceBid bids the attached value
func (s *AuctionContract) PlaceBid(ctx contractapi.TransactionContextInterface, auctionID string, value string) (*Receipt, error) {
	return s.submit(ctx, auctionID, value, escrow.Bid{})
}

/**************** QUERIES ****************/

// GetSaleData returns the public view of an auction
func (s *AuctionContract) GetSaleData(ctx contractapi.TransactionContextInterface, auctionID string) (*auction.SaleData, error) {
	var st auction.State
	if err := getRecord(ctx, auctionObjectType, auctionID, &st); err != nil {
		return nil, fmt.Errorf("could not get the auction: %w", err)
	}
	saleData := st.SaleData()
	return &saleData, nil
}

// ListAuctions returns the public view of every auction
func (s *AuctionContract) ListAuctions(ctx contractapi.TransactionContextInterface) ([]*AuctionEntry, error) {
	entries := []*AuctionEntry{}
	err := listRecords(ctx, auctionObjectType, func(id string, recordBin []byte) error {
		var st auction.State
		if err := json.Unmarshal(recordBin, &st); err != nil {
			return fmt.Errorf("auction %s: %v", id, err)
		}
		entries = append(entries, &AuctionEntry{ID: id, SaleData: st.SaleData()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not list auctions: %w", err)
	}
	return entries, nil
}

// submit runs one message through the auction engine and persists the outcome
func (s *AuctionContract) submit(ctx contractapi.TransactionContextInterface, auctionID, value string, body escrow.Body) (*Receipt, error) {
	msg, now, err := newMessage(ctx, auctionID, value, body)
	if err != nil {
		return nil, err
	}

	var st auction.State
	if err := getRecord(ctx, auctionObjectType, auctionID, &st); err != nil {
		return nil, fmt.Errorf("could not get the auction: %w", err)
	}

	logger := zap.L().With(
		zap.String("auction", auctionID),
		zap.String("op", string(body.Op())),
		zap.String("sender", string(msg.Sender)),
		zap.Stringer("value", msg.Value),
	)

	next, actions, err := auction.Process(st, msg, now)
	if err != nil {
		logger.Info("auction message rejected", zap.Uint32("exitCode", uint32(escrow.ExitCodeOf(err))), zap.Error(err))
		return nil, fmt.Errorf("auction %s rejected %s: %w", auctionID, body.Op(), err)
	}

	if err := putRecord(ctx, auctionObjectType, auctionID, next); err != nil {
		return nil, fmt.Errorf("failed to save the updated auction: %v", err)
	}
	receipt, err := emitReceipt(ctx, auctionObjectType, auctionID, msg, now, actions, next)
	if err != nil {
		return nil, err
	}

	logger.Info("auction message accepted", zap.Int("actions", len(actions)), zap.Bool("end", next.End))
	return receipt, nil
}

// state converts the config into a fresh auction waiting for its NFT
func (c AuctionConfig) state(creator escrow.Address, now time.Time) (auction.State, error) {
	st := auction.State{
		MarketplaceFeeAddress: c.MarketplaceFeeAddress,
		MarketplaceFeeFactor:  c.MarketplaceFeeFactor,
		MarketplaceFeeBase:    c.MarketplaceFeeBase,
		RoyaltyAddress:        c.RoyaltyAddress,
		RoyaltyFactor:         c.RoyaltyFactor,
		RoyaltyBase:           c.RoyaltyBase,
		StepTimeSeconds:       c.StepTimeSeconds,
		TryStepTimeSeconds:    c.TryStepTimeSeconds,
		EndTimestamp:          c.EndTimestamp,
		CreatedAtTimestamp:    c.CreatedAtTimestamp,
		MarketplaceAddress:    c.MarketplaceAddress,
		NftAddress:            c.NftAddress,
		End:                   true,
	}
	if st.MarketplaceAddress.IsZero() {
		st.MarketplaceAddress = creator
	}
	if st.CreatedAtTimestamp == 0 {
		st.CreatedAtTimestamp = now.Unix()
	}

	var err error
	if st.MinBid, err = parseCoins("minBid", c.MinBid); err != nil {
		return auction.State{}, err
	}
	if st.MaxBid, err = parseCoins("maxBid", c.MaxBid); err != nil {
		return auction.State{}, err
	}
	if st.MinStep, err = parseCoins("minStep", c.MinStep); err != nil {
		return auction.State{}, err
	}
	if st.ProcessingReserve, err = parseCoins("processingReserve", c.ProcessingReserve); err != nil {
		return auction.State{}, err
	}
	return st, nil
}
