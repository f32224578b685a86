/*
SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
)

const compositeKeyNamespace = "\x00"

// ledgerStub keeps the world state in memory. Only the calls made by the
// contracts are implemented, anything else panics through the nil interface.
type ledgerStub struct {
	shim.ChaincodeStubInterface

	state  map[string][]byte
	events map[string][]byte
	txSeq  int
	now    time.Time
}

func newLedgerStub(now time.Time) *ledgerStub {
	return &ledgerStub{
		state:  make(map[string][]byte),
		events: make(map[string][]byte),
		now:    now,
	}
}

func (s *ledgerStub) GetState(key string) ([]byte, error) {
	return s.state[key], nil
}

func (s *ledgerStub) PutState(key string, value []byte) error {
	s.state[key] = value
	return nil
}

func (s *ledgerStub) SetEvent(name string, payload []byte) error {
	s.events[name] = payload
	return nil
}

func (s *ledgerStub) GetTxID() string {
	return fmt.Sprintf("tx%d", s.txSeq)
}

func (s *ledgerStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	return &timestamp.Timestamp{Seconds: s.now.Unix()}, nil
}

func (s *ledgerStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeyNamespace + objectType + compositeKeyNamespace
	for _, attr := range attributes {
		key += attr + compositeKeyNamespace
	}
	return key, nil
}

func (s *ledgerStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	parts := strings.Split(strings.Trim(compositeKey, compositeKeyNamespace), compositeKeyNamespace)
	return parts[0], parts[1:], nil
}

func (s *ledgerStub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, _ := s.CreateCompositeKey(objectType, keys)
	var kvs []*queryresult.KV
	for key, value := range s.state {
		if strings.HasPrefix(key, prefix) {
			kvs = append(kvs, &queryresult.KV{Key: key, Value: value})
		}
	}
	sort.Slice(kvs, func(i, j int) bool {
		return kvs[i].Key < kvs[j].Key
	})
	return &kvIterator{kvs: kvs}, nil
}

type kvIterator struct {
	kvs []*queryresult.KV
}

func (it *kvIterator) HasNext() bool {
	return len(it.kvs) > 0
}

func (it *kvIterator) Next() (*queryresult.KV, error) {
	if len(it.kvs) == 0 {
		return nil, fmt.Errorf("iterator exhausted")
	}
	kv := it.kvs[0]
	it.kvs = it.kvs[1:]
	return kv, nil
}

func (it *kvIterator) Close() error {
	return nil
}

// clientIdentity reports a fixed client ID
type clientIdentity struct {
	cid.ClientIdentity
	id string
}

func (c clientIdentity) GetID() (string, error) {
	return c.id, nil
}

func (c clientIdentity) GetMSPID() (string, error) {
	return "Org1MSP", nil
}

// as builds a transaction context submitted by clientID. Every call starts a new transaction.
func (s *ledgerStub) as(clientID string) contractapi.TransactionContextInterface {
	s.txSeq++
	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(s)
	ctx.SetClientIdentity(clientIdentity{id: clientID})
	return ctx
}
