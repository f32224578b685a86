/*
SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
)

// getSubmittingClientIdentity returns the address of the submitting client
func getSubmittingClientIdentity(ctx contractapi.TransactionContextInterface) (escrow.Address, error) {
	clientID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to read clientID: %v", err)
	}
	return escrow.Address(clientID), nil
}

// transactionTime returns the proposal timestamp set by the client
func transactionTime(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read transaction timestamp: %v", err)
	}
	return ts.AsTime(), nil
}

// parseCoins parses an optional decimal coin amount, an empty string means zero
func parseCoins(field, value string) (escrow.Coins, error) {
	if value == "" {
		return 0, nil
	}
	coins, err := escrow.ParseCoins(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return coins, nil
}

// parseAction decodes a relayed action given as JSON
func parseAction(actionJSON string) (escrow.Action, error) {
	var action escrow.Action
	if err := json.Unmarshal([]byte(actionJSON), &action); err != nil {
		return escrow.Action{}, fmt.Errorf("invalid action: %v", err)
	}
	return action, nil
}

// newMessage builds the inbound message of the current transaction
func newMessage(ctx contractapi.TransactionContextInterface, destination, value string, body escrow.Body) (escrow.Message, time.Time, error) {
	sender, err := getSubmittingClientIdentity(ctx)
	if err != nil {
		return escrow.Message{}, time.Time{}, err
	}
	coins, err := parseCoins("value", value)
	if err != nil {
		return escrow.Message{}, time.Time{}, err
	}
	now, err := transactionTime(ctx)
	if err != nil {
		return escrow.Message{}, time.Time{}, err
	}
	msg := escrow.Message{
		Sender:      sender,
		Destination: escrow.Address(destination),
		Value:       coins,
		Bounceable:  true,
		Body:        body,
	}
	return msg, now, nil
}

// emitReceipt hashes the stored record and publishes the receipt of an accepted message
func emitReceipt(ctx contractapi.TransactionContextInterface, objectType, id string, msg escrow.Message, now time.Time, actions []escrow.Action, record interface{}) (*Receipt, error) {
	stateHash, err := hashState(record)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s state: %v", objectType, err)
	}
	if actions == nil {
		actions = []escrow.Action{}
	}
	receipt := &Receipt{
		Contract:  objectType,
		ID:        id,
		TxID:      ctx.GetStub().GetTxID(),
		Op:        msg.Body.Op(),
		Sender:    msg.Sender,
		Value:     msg.Value,
		Timestamp: now.Unix(),
		Actions:   actions,
		StateHash: stateHash,
	}
	if err := setReceiptEvent(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to set %s event: %v", objectType, err)
	}
	return receipt, nil
}
