package gate

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// ProposalStatus mirrors the governance contract's proposal states.
type ProposalStatus string

const (
	ProposalInProgress ProposalStatus = "InProgress"
	ProposalApproved   ProposalStatus = "Approved"
	ProposalRejected   ProposalStatus = "Rejected"
	ProposalRemoved    ProposalStatus = "Removed"
	ProposalExpired    ProposalStatus = "Expired"
	ProposalMoved      ProposalStatus = "Moved"
	ProposalFailed     ProposalStatus = "Failed"
)

// ActionCall is one call inside a FunctionCall proposal. Args is base64.
type ActionCall struct {
	MethodName string `json:"method_name"`
	Args       string `json:"args"`
	Deposit    string `json:"deposit"`
	Gas        string `json:"gas"`
}

// FunctionCall is the payload of a FunctionCall proposal.
type FunctionCall struct {
	ReceiverID string       `json:"receiver_id"`
	Actions    []ActionCall `json:"actions"`
}

// ProposalKind holds the proposal kind. Only FunctionCall is decoded; other
// kinds keep their raw JSON.
type ProposalKind struct {
	FunctionCall *FunctionCall
	Raw          json.RawMessage
}

// UnmarshalJSON accepts {"FunctionCall":{...}}, other tagged objects and
// bare strings such as "Vote".
func (k *ProposalKind) UnmarshalJSON(data []byte) error {
	k.Raw = append(k.Raw[:0], data...)
	k.FunctionCall = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var tagged struct {
		FunctionCall *FunctionCall `json:"FunctionCall"`
	}
	if err := json.Unmarshal(trimmed, &tagged); err != nil {
		return err
	}
	k.FunctionCall = tagged.FunctionCall
	return nil
}

// MarshalJSON returns the original kind JSON.
func (k ProposalKind) MarshalJSON() ([]byte, error) {
	if len(k.Raw) > 0 {
		return k.Raw, nil
	}
	if k.FunctionCall != nil {
		return json.Marshal(map[string]*FunctionCall{"FunctionCall": k.FunctionCall})
	}
	return []byte("null"), nil
}

// Proposal is a governance proposal as returned by get_proposal.
type Proposal struct {
	ID             uint64         `json:"id"`
	Proposer       string         `json:"proposer"`
	Description    string         `json:"description"`
	Kind           ProposalKind   `json:"kind"`
	Status         ProposalStatus `json:"status"`
	SubmissionTime string         `json:"submission_time"`
}

// References reports whether p mentions listID, either in its description or
// in the decoded arguments of a call addressed to settlementAccount.
//
// The match is a substring test and is not bound to the proposal
// cryptographically.
func (p *Proposal) References(listID, settlementAccount string) bool {
	if strings.Contains(p.Description, listID) {
		return true
	}

	fc := p.Kind.FunctionCall
	if fc == nil || fc.ReceiverID != settlementAccount {
		return false
	}
	for _, action := range fc.Actions {
		decoded, err := base64.StdEncoding.DecodeString(action.Args)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		if strings.Contains(string(decoded), listID) {
			return true
		}
	}
	return false
}
