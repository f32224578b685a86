/*
SPDX-License-Identifier: Apache-2.0
*/

// Package escrow holds the vocabulary shared by the auction and raffle
// engines: identities, coin amounts, inbound messages, outbound actions and
// the exit code taxonomy.
package escrow

// Address identifies a participant, an NFT or a contract. The zero value means null.
type Address string

// IsZero reports whether the address is null
func (a Address) IsZero() bool {
	return a == ""
}

// Op names a message body kind
type Op string

const (
	OpBid               Op = "bid"
	OpOwnershipAssigned Op = "ownership_assigned"
	OpStop              Op = "stop"
	OpCancel            Op = "cancel"
	OpRepeatEnd         Op = "repeat_end_auction"
	OpEmergencyMessage  Op = "emergency_message"
	OpAddCoins          Op = "add_coins"
	OpMaintain          Op = "maintain"
	OpSendAgain         Op = "send_again"
)

// Body is the tagged payload of an inbound message
type Body interface {
	Op() Op
}

// Message is one inbound value-bearing message
type Message struct {
	Sender      Address
	Destination Address
	Value       Coins
	Bounceable  bool
	Body        Body // nil is a plain transfer
}

// Bid is a plain transfer, the attached value is the bid amount
type Bid struct{}

// OwnershipAssigned confirms that custody of an NFT moved to the contract
type OwnershipAssigned struct {
	QueryID   uint64  `json:"queryId"`
	PrevOwner Address `json:"prevOwner"`
}

// Stop asks the auction to settle
type Stop struct{}

// Cancel asks the contract to abort and return escrowed assets
type Cancel struct {
	QueryID uint64 `json:"queryId"`
}

// RepeatEnd asks a settled auction to emit its NFT transfer again
type RepeatEnd struct{}

// EmergencyMessage relays a pre-built action verbatim
type EmergencyMessage struct {
	Action Action `json:"action"`
}

// AddCoins tops up a raffle side's commission balance
type AddCoins struct {
	QueryID uint64 `json:"queryId"`
}

// Maintain relays a pre-built action from a finished raffle
type Maintain struct {
	QueryID uint64 `json:"queryId"`
	Action  Action `json:"action"`
}

// SendAgain re-emits the final NFT transfers of a finished raffle
type SendAgain struct {
	QueryID uint64 `json:"queryId"`
}

func (Bid) Op() Op               { return OpBid }
func (OwnershipAssigned) Op() Op { return OpOwnershipAssigned }
func (Stop) Op() Op              { return OpStop }
func (Cancel) Op() Op            { return OpCancel }
func (RepeatEnd) Op() Op         { return OpRepeatEnd }
func (EmergencyMessage) Op() Op  { return OpEmergencyMessage }
func (AddCoins) Op() Op          { return OpAddCoins }
func (Maintain) Op() Op          { return OpMaintain }
func (SendAgain) Op() Op         { return OpSendAgain }
