/*
SPDX-License-Identifier: Apache-2.0
*/

package escrow

// ActionKind distinguishes outbound actions
type ActionKind string

const (
	KindSendMsg         ActionKind = "send_msg"
	KindReserveCurrency ActionKind = "reserve_currency"
)

// SendMode is a bit set controlling how an outbound message pays for itself
type SendMode uint8

const (
	ModeOrdinary            SendMode = 0
	ModePayFeesSeparately   SendMode = 1
	ModeIgnoreErrors        SendMode = 2
	ModeCarryRemainingValue SendMode = 64
	ModeCarryAllBalance     SendMode = 128
)

// NftTransfer is the payload of a message instructing an NFT to change owner
type NftTransfer struct {
	QueryID             uint64  `json:"queryId"`
	NewOwner            Address `json:"newOwner"`
	ResponseDestination Address `json:"responseDestination"`
	ForwardAmount       Coins   `json:"forwardAmount"`
}

// Action is one entry of the ordered outbound action list
type Action struct {
	Kind     ActionKind   `json:"type"`
	Mode     SendMode     `json:"mode"`
	To       Address      `json:"to,omitempty"`
	Value    Coins        `json:"value"`
	Transfer *NftTransfer `json:"transfer,omitempty"`
	Payload  string       `json:"payload,omitempty"` // hex encoded message body
}

// SendValue builds a plain value transfer
func SendValue(to Address, amount Coins, mode SendMode) Action {
	return Action{Kind: KindSendMsg, Mode: mode, To: to, Value: amount}
}

// TransferNft builds a message to the NFT asking it to move to newOwner
func TransferNft(nft, newOwner Address, amount Coins, mode SendMode, queryID uint64) Action {
	return Action{
		Kind:  KindSendMsg,
		Mode:  mode,
		To:    nft,
		Value: amount,
		Transfer: &NftTransfer{
			QueryID:             queryID,
			NewOwner:            newOwner,
			ResponseDestination: newOwner,
		},
	}
}

// ReserveCurrency builds a bookkeeping action that keeps amount on the contract
func ReserveCurrency(amount Coins, mode SendMode) Action {
	return Action{Kind: KindReserveCurrency, Mode: mode, Value: amount}
}

// Valid reports whether a relayed action is well formed
func (a Action) Valid() bool {
	switch a.Kind {
	case KindSendMsg:
		return !a.To.IsZero()
	case KindReserveCurrency:
		return true
	default:
		return false
	}
}
