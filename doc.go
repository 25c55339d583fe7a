// Package bulkpay is a settlement engine for bulk treasury payments.
//
// A payer buys storage credits, submits a payment list identified by the
// hash of its content, funds it with the exact total and then drives
// settlement in budget-bounded batches until every record is paid.
//
//   - Storage credits are prepaid at a fixed price per record
//   - List identifiers are the SHA-256 of a canonical JSON document, so a
//     governance proposal can reference a list before it exists
//   - Lists move Pending to Approved or Pending to Rejected, exactly once
//   - Each payout batch dispatches payments in stored order while the
//     execution budget covers the rail cost plus a fixed reserve
//   - Payments leave through native, fungible or multi-asset rails without
//     waiting for the destination ledger
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/bulkpay"
//	    "github.com/xraph/bulkpay/store/memory"
//	)
//
//	engine := bulkpay.New(memory.New(),
//	    bulkpay.WithSystemIdentity("bulk-payment.near"),
//	)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Lifecycle
//
// Buy credits with the exact quote:
//
//	cost, _ := engine.Quote(10)
//	_, err := engine.BuyStorage(ctx, "alice.near", "", 10, cost)
//
// Submit a list under its content hash:
//
//	payments := []bulkpay.Payment{{Recipient: "bob.near", Amount: bulkpay.NewAmount(100)}}
//	listID := bulkpay.ComputeListID("alice.near", "native", payments)
//	_, err = engine.Submit(ctx, bulkpay.SubmitInput{
//	    ListID:    listID,
//	    TokenID:   "native",
//	    Payments:  payments,
//	    Submitter: "alice.near",
//	    Caller:    "alice.near",
//	})
//
// Approve with the exact total and pay out in batches:
//
//	err = engine.Approve(ctx, listID, "alice.near", bulkpay.NewAmount(100))
//	for {
//	    remaining, err := engine.PayoutBatch(ctx, listID, 300)
//	    if err != nil || remaining == 0 {
//	        break
//	    }
//	}
//
// # Amounts
//
// Amounts are unsigned 128-bit integers in the smallest unit of the token.
// Every addition and multiplication is checked and fails with ErrOverflow.
// Amounts marshal as decimal strings.
//
// # TypeID
//
// Purchase receipts, batches and dispatch instructions carry TypeIDs:
//
//	pur_01h2xcejqtf2nbrexx3vqjhp41  // Purchase receipt
//	bat_01h2xcejqtf2nbrexx3vqjhp41  // Payout batch
//	dsp_01h455vb4pex5vsknk084sn02q  // Dispatch instruction
package bulkpay
