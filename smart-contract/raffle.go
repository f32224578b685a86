/*
SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"go.uber.org/zap"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/raffle"
)

// RaffleContract swaps NFTs between two users
type RaffleContract struct {
	contractapi.Contract
}

// NewRaffleContract returns the contract registered under the name "raffle"
func NewRaffleContract() *RaffleContract {
	c := new(RaffleContract)
	c.Name = raffleObjectType
	c.Info.Title = "NFT raffle"
	c.Info.Version = "1.0.0"
	return c
}

// CreateRaffle stores a new active raffle
func (s *RaffleContract) CreateRaffle(ctx contractapi.TransactionContextInterface, raffleID string, configJSON string) error {
	clientID, errClientID := getSubmittingClientIdentity(ctx)
	if errClientID != nil {
		return fmt.Errorf("failed to get client identity: %v", errClientID)
	}

	raffleExists, errRaffleExist := doesRecordExist(ctx, raffleObjectType, raffleID)
	if errRaffleExist != nil {
		return fmt.Errorf("failed to check if a raffle with the same id already exists: %v", errRaffleExist)
	}
	if raffleExists {
		return fmt.Errorf("raffle %s already exists", raffleID)
	}

	var cfg RaffleConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return fmt.Errorf("invalid raffle config: %v", err)
	}
	st, err := cfg.state(clientID)
	if err != nil {
		return fmt.Errorf("invalid raffle config: %w", err)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid raffle config: %w", err)
	}

	if err := putRecord(ctx, raffleObjectType, raffleID, st); err != nil {
		return fmt.Errorf("could not save the new raffle in the world state: %v", err)
	}

	zap.L().With(
		zap.String("raffle", raffleID),
		zap.String("superUser", string(st.SuperUser)),
		zap.Int("leftNfts", st.LeftNftsCount),
		zap.Int("rightNfts", st.RightNftsCount),
	).Info("raffle created")
	return nil
}

// OwnershipAssigned is sent by a registered NFT once the raffle became its owner
func (s *RaffleContract) OwnershipAssigned(ctx contractapi.TransactionContextInterface, raffleID string, value string, prevOwner string) (*Receipt, error) {
	return s.submit(ctx, raffleID, value, escrow.OwnershipAssigned{PrevOwner: escrow.Address(prevOwner)})
}

// AddCoins tops up the commission of the sending side
func (s *RaffleContract) AddCoins(ctx contractapi.TransactionContextInterface, raffleID string, value string) (*Receipt, error) {
	return s.submit(ctx, raffleID, value, escrow.AddCoins{})
}

// Cancel returns every deposit, super user only
func (s *RaffleContract) Cancel(ctx contractapi.TransactionContextInterface, raffleID string, value string) (*Receipt, error) {
	return s.submit(ctx, raffleID, value, escrow.Cancel{})
}

// SendAgain re-emits the NFT transfers of a finished raffle
func (s *RaffleContract) SendAgain(ctx contractapi.TransactionContextInterface, raffleID string, value string) (*Receipt, error) {
	return s.submit(ctx, raffleID, value, escrow.SendAgain{})
}

// Maintain relays an arbitrary outbound action from a finished raffle
func (s *RaffleContract) Maintain(ctx contractapi.TransactionContextInterface, raffleID string, value string, actionJSON string) (*Receipt, error) {
	action, err := parseAction(actionJSON)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, raffleID, value, escrow.Maintain{Action: action})
}

// GetRaffleState returns the public view of a raffle
func (s *RaffleContract) GetRaffleState(ctx contractapi.TransactionContextInterface, raffleID string) (*raffle.Snapshot, error) {
	var st raffle.State
	if err := getRecord(ctx, raffleObjectType, raffleID, &st); err != nil {
		return nil, fmt.Errorf("could not get the raffle: %w", err)
	}
	snapshot := st.Snapshot()
	return &snapshot, nil
}

// ListRaffles returns the public view of every raffle
func (s *RaffleContract) ListRaffles(ctx contractapi.TransactionContextInterface) ([]*RaffleEntry, error) {
	entries := []*RaffleEntry{}
	err := listRecords(ctx, raffleObjectType, func(id string, recordBin []byte) error {
		var st raffle.State
		if err := json.Unmarshal(recordBin, &st); err != nil {
			return fmt.Errorf("raffle %s: %v", id, err)
		}
		entries = append(entries, &RaffleEntry{ID: id, State: st.Snapshot()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not list raffles: %w", err)
	}
	return entries, nil
}

func (s *RaffleContract) submit(ctx contractapi.TransactionContextInterface, raffleID, value string, body escrow.Body) (*Receipt, error) {
	msg, now, err := newMessage(ctx, raffleID, value, body)
	if err != nil {
		return nil, err
	}

	var st raffle.State
	if err := getRecord(ctx, raffleObjectType, raffleID, &st); err != nil {
		return nil, fmt.Errorf("could not get the raffle: %w", err)
	}

	logger := zap.L().With(
		zap.String("raffle", raffleID),
		zap.String("op", string(body.Op())),
		zap.String("sender", string(msg.Sender)),
		zap.Stringer("value", msg.Value),
	)

	next, actions, err := raffle.Process(st, msg)
	if err != nil {
		logger.Info("raffle message rejected", zap.Uint32("exitCode", uint32(escrow.ExitCodeOf(err))), zap.Error(err))
		return nil, fmt.Errorf("raffle %s rejected %s: %w", raffleID, body.Op(), err)
	}

	if err := putRecord(ctx, raffleObjectType, raffleID, next); err != nil {
		return nil, fmt.Errorf("failed to save the updated raffle: %v", err)
	}
	receipt, err := emitReceipt(ctx, raffleObjectType, raffleID, msg, now, actions, next)
	if err != nil {
		return nil, err
	}

	logger.Info("raffle message accepted", zap.Int("actions", len(actions)), zap.Stringer("status", next.Status))
	return receipt, nil
}

// state converts the config into a fresh active raffle
func (c RaffleConfig) state(creator escrow.Address) (raffle.State, error) {
	superUser := c.SuperUser
	if superUser.IsZero() {
		superUser = creator
	}
	st := raffle.New(c.LeftUser, c.RightUser, superUser, c.LeftNfts, c.RightNfts)

	var err error
	if st.LeftCommission, err = parseCoins("leftCommission", c.LeftCommission); err != nil {
		return raffle.State{}, err
	}
	if st.RightCommission, err = parseCoins("rightCommission", c.RightCommission); err != nil {
		return raffle.State{}, err
	}
	if st.NftTransferFee, err = parseCoins("nftTransferFee", c.NftTransferFee); err != nil {
		return raffle.State{}, err
	}
	if st.CommissionFee, err = parseCoins("commissionFee", c.CommissionFee); err != nil {
		return raffle.State{}, err
	}
	if st.StorageReserve, err = parseCoins("storageReserve", c.StorageReserve); err != nil {
		return raffle.State{}, err
	}
	return st, nil
}
