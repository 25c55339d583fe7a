package rail

import (
	"encoding/json"
	"strings"

	"github.com/xraph/bulkpay/id"
	"github.com/xraph/bulkpay/types"
)

// Gas attached to every token function call, in TGas.
const FunctionCallGas uint64 = 50

// OneYocto is the deposit required by token contracts on transfer calls.
var OneYocto = types.NewAmount(1)

// Instruction is a single outbound transaction. For a native transfer Method
// is empty and Deposit carries the amount; otherwise Receiver is the contract
// called with Method and Args.
type Instruction struct {
	ID        id.ID           `json:"id"`
	Kind      Kind            `json:"kind"`
	Receiver  string          `json:"receiver"`
	Method    string          `json:"method,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Deposit   types.Amount    `json:"deposit"`
	Gas       uint64          `json:"gas_tgas,omitempty"`
	Recipient string          `json:"recipient"`
	Amount    types.Amount    `json:"amount"`
}

type ftTransferArgs struct {
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
}

type ftWithdrawArgs struct {
	Token      string `json:"token"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
}

// NativeInstruction builds a direct transfer.
func NativeInstruction(recipient string, amount types.Amount) Instruction {
	return Instruction{
		ID:        id.NewDispatchID(),
		Kind:      KindNative,
		Receiver:  recipient,
		Deposit:   amount,
		Recipient: recipient,
		Amount:    amount,
	}
}

// FungibleInstruction builds an ft_transfer call on the token contract.
func FungibleInstruction(contract, recipient string, amount types.Amount) Instruction {
	return Instruction{
		ID:        id.NewDispatchID(),
		Kind:      KindFungible,
		Receiver:  contract,
		Method:    "ft_transfer",
		Args:      mustArgs(ftTransferArgs{ReceiverID: recipient, Amount: amount.String()}),
		Deposit:   OneYocto,
		Gas:       FunctionCallGas,
		Recipient: recipient,
		Amount:    amount,
	}
}

// MultiAssetInstruction builds an ft_withdraw call on the intents contract.
// Bridged assets are withdrawn to the asset contract and routed off chain by
// the memo.
func MultiAssetInstruction(asset, recipient string, amount types.Amount, memo string) Instruction {
	receiver := recipient
	if strings.HasSuffix(asset, BridgedSuffix) {
		receiver = asset
	}
	return Instruction{
		ID:       id.NewDispatchID(),
		Kind:     KindMultiAsset,
		Receiver: IntentsContract,
		Method:   "ft_withdraw",
		Args: mustArgs(ftWithdrawArgs{
			Token:      asset,
			ReceiverID: receiver,
			Amount:     amount.String(),
			Memo:       memo,
		}),
		Deposit:   OneYocto,
		Gas:       FunctionCallGas,
		Recipient: recipient,
		Amount:    amount,
	}
}

func mustArgs(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("rail: encode args: " + err.Error())
	}
	return data
}
