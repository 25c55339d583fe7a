package rail_test

import (
	"context"
	"testing"

	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		tokenID string
		kind    rail.Kind
		cost    uint64
	}{
		{"native", rail.KindNative, 3},
		{"near", rail.KindNative, 3},
		{"NEAR", rail.KindNative, 3},
		{"Native", rail.KindNative, 3},
		{"nep141:usdc.near", rail.KindMultiAsset, 50},
		{"nep141:eth.omft.near", rail.KindMultiAsset, 50},
		{"usdc.near", rail.KindFungible, 50},
		{"wrap.near", rail.KindFungible, 50},
		{"nearly.near", rail.KindFungible, 50},
	}

	for _, tt := range tests {
		t.Run(tt.tokenID, func(t *testing.T) {
			kind := rail.Classify(tt.tokenID)
			if kind != tt.kind {
				t.Errorf("Classify(%q) = %s, want %s", tt.tokenID, kind, tt.kind)
			}
			if got := rail.Cost(kind); got != tt.cost {
				t.Errorf("Cost(%s) = %d, want %d", kind, got, tt.cost)
			}
		})
	}
}

func TestPayRoutesToRail(t *testing.T) {
	amount := types.NewAmount(1_000)

	tests := []struct {
		name     string
		tokenID  string
		kind     rail.Kind
		receiver string
		method   string
		args     string
		deposit  string
	}{
		{
			name:     "native",
			tokenID:  "native",
			kind:     rail.KindNative,
			receiver: "alice.near",
			deposit:  "1000",
		},
		{
			name:     "fungible token",
			tokenID:  "usdc.near",
			kind:     rail.KindFungible,
			receiver: "usdc.near",
			method:   "ft_transfer",
			args:     `{"receiver_id":"alice.near","amount":"1000"}`,
			deposit:  "1",
		},
		{
			name:     "intents withdrawal",
			tokenID:  "nep141:usdc.near",
			kind:     rail.KindMultiAsset,
			receiver: "intents.near",
			method:   "ft_withdraw",
			args:     `{"token":"usdc.near","receiver_id":"alice.near","amount":"1000"}`,
			deposit:  "1",
		},
		{
			name:     "bridged withdrawal carries memo",
			tokenID:  "nep141:eth.omft.near",
			kind:     rail.KindMultiAsset,
			receiver: "intents.near",
			method:   "ft_withdraw",
			args:     `{"token":"eth.omft.near","receiver_id":"eth.omft.near","amount":"1000","memo":"WITHDRAW_TO:alice.near"}`,
			deposit:  "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := rail.NewRecorder()
			if err := rail.Pay(context.Background(), rec, tt.tokenID, "alice.near", amount); err != nil {
				t.Fatalf("Pay: %v", err)
			}

			got := rec.Instructions()
			if len(got) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(got))
			}
			ins := got[0]
			if ins.Kind != tt.kind {
				t.Errorf("kind: got %s, want %s", ins.Kind, tt.kind)
			}
			if ins.Receiver != tt.receiver {
				t.Errorf("receiver: got %s, want %s", ins.Receiver, tt.receiver)
			}
			if ins.Method != tt.method {
				t.Errorf("method: got %s, want %s", ins.Method, tt.method)
			}
			if string(ins.Args) != tt.args {
				t.Errorf("args: got %s, want %s", ins.Args, tt.args)
			}
			if ins.Deposit.String() != tt.deposit {
				t.Errorf("deposit: got %s, want %s", ins.Deposit, tt.deposit)
			}
			if ins.Recipient != "alice.near" || !ins.Amount.Equal(amount) {
				t.Errorf("unexpected recipient/amount: %s %s", ins.Recipient, ins.Amount)
			}
			if ins.ID.IsNil() {
				t.Error("expected a dispatch id")
			}
		})
	}
}
