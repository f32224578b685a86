/*
SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"golang.org/x/crypto/sha3"
)

// object types used as composite key prefixes
const (
	auctionObjectType = "auction"
	raffleObjectType  = "raffle"
)

// recordKey gets a world state key for the record of the given kind
func recordKey(ctx contractapi.TransactionContextInterface, objectType, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%s id cannot be empty", objectType)
	}
	return ctx.GetStub().CreateCompositeKey(objectType, []string{id})
}

// doesRecordExist checks if a record with the given id exists in the world state
func doesRecordExist(ctx contractapi.TransactionContextInterface, objectType, id string) (bool, error) {
	key, err := recordKey(ctx, objectType, id)
	if err != nil {
		return false, err
	}
	recordBin, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, err
	}
	return recordBin != nil, nil
}

// getRecord retrieves the record with the given id from the world state into out
func getRecord(ctx contractapi.TransactionContextInterface, objectType, id string, out interface{}) error {
	key, err := recordKey(ctx, objectType, id)
	if err != nil {
		return err
	}
	recordBin, errGetState := ctx.GetStub().GetState(key)
	if errGetState != nil {
		return errGetState
	}
	if recordBin == nil {
		return fmt.Errorf("%s %s does not exist", objectType, id)
	}
	return json.Unmarshal(recordBin, out)
}

// putRecord saves the given record in the contract world state
func putRecord(ctx contractapi.TransactionContextInterface, objectType, id string, record interface{}) error {
	key, err := recordKey(ctx, objectType, id)
	if err != nil {
		return err
	}
	recordBin, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(key, recordBin)
}

// listRecords calls fn for every record of the given kind, in key order
func listRecords(ctx contractapi.TransactionContextInterface, objectType string, fn func(id string, recordBin []byte) error) error {
	iter, err := ctx.GetStub().GetStateByPartialCompositeKey(objectType, []string{})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return err
		}
		_, attrs, err := ctx.GetStub().SplitCompositeKey(kv.Key)
		if err != nil {
			return err
		}
		if len(attrs) != 1 {
			return fmt.Errorf("malformed %s key %q", objectType, kv.Key)
		}
		if err := fn(attrs[0], kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// setReceiptEvent sets an event about the processed message which can be received by contract users
func setReceiptEvent(ctx contractapi.TransactionContextInterface, receipt *Receipt) error {
	if receipt == nil {
		return fmt.Errorf("receipt cannot be nil")
	}
	receiptBin, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return ctx.GetStub().SetEvent(eventName(receipt.Contract, receipt.ID), receiptBin)
}

func eventName(objectType, id string) string {
	return objectType + "." + id
}

// hashState hashes the JSON encoding of a record with SHA3-256
func hashState(record interface{}) (string, error) {
	recordBin, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(recordBin)
	return hex.EncodeToString(sum[:]), nil
}

// NewChaincode bundles the auction and raffle contracts, auction is the default
func NewChaincode() (*contractapi.ContractChaincode, error) {
	return contractapi.NewChaincode(NewAuctionContract(), NewRaffleContract())
}
