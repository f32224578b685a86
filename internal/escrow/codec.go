/*
SPDX-License-Identifier: Apache-2.0
*/

package escrow

import (
	"encoding/json"
	"fmt"
)

// envelope is the JSON form of a Message
type envelope struct {
	Sender      Address         `json:"sender"`
	Destination Address         `json:"destination,omitempty"`
	Value       string          `json:"value"`
	Bounceable  bool            `json:"bounceable"`
	Op          Op              `json:"op,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// MarshalJSON encodes the message with its body tagged by op
func (m Message) MarshalJSON() ([]byte, error) {
	env := envelope{
		Sender:      m.Sender,
		Destination: m.Destination,
		Value:       m.Value.String(),
		Bounceable:  m.Bounceable,
	}
	if m.Body != nil {
		env.Op = m.Body.Op()
		body, err := json.Marshal(m.Body)
		if err != nil {
			return nil, err
		}
		env.Body = body
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes a tagged message
func (m *Message) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	value := Coins(0)
	if env.Value != "" {
		v, err := ParseCoins(env.Value)
		if err != nil {
			return err
		}
		value = v
	}
	body, err := DecodeBody(env.Op, env.Body)
	if err != nil {
		return err
	}
	*m = Message{
		Sender:      env.Sender,
		Destination: env.Destination,
		Value:       value,
		Bounceable:  env.Bounceable,
		Body:        body,
	}
	return nil
}

// DecodeBody builds the body variant named by op from its JSON form
func DecodeBody(op Op, raw json.RawMessage) (Body, error) {
	var body Body
	switch op {
	case "":
		return nil, nil
	case OpBid:
		body = &Bid{}
	case OpOwnershipAssigned:
		body = &OwnershipAssigned{}
	case OpStop:
		body = &Stop{}
	case OpCancel:
		body = &Cancel{}
	case OpRepeatEnd:
		body = &RepeatEnd{}
	case OpEmergencyMessage:
		body = &EmergencyMessage{}
	case OpAddCoins:
		body = &AddCoins{}
	case OpMaintain:
		body = &Maintain{}
	case OpSendAgain:
		body = &SendAgain{}
	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, body); err != nil {
			return nil, fmt.Errorf("failed to decode %s body: %v", op, err)
		}
	}
	return deref(body), nil
}

// deref turns the decoding pointer back into the value variant the engines switch on
func deref(body Body) Body {
	switch b := body.(type) {
	case *Bid:
		return *b
	case *OwnershipAssigned:
		return *b
	case *Stop:
		return *b
	case *Cancel:
		return *b
	case *RepeatEnd:
		return *b
	case *EmergencyMessage:
		return *b
	case *AddCoins:
		return *b
	case *Maintain:
		return *b
	case *SendAgain:
		return *b
	}
	return body
}
