package gate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/avast/retry-go"
)

// ErrRPC is returned when the node answers with an error payload.
var ErrRPC = errors.New("gate: rpc error")

// RPCSource reads proposals through a NEAR JSON-RPC node using view calls.
// Proposals in a terminal status never change and are cached.
type RPCSource struct {
	endpoint string
	client   *http.Client
	attempts uint
	delay    time.Duration
	ttl      time.Duration
	cache    *cache.Cache[string, *Proposal]
}

var _ ProposalSource = (*RPCSource)(nil)

// RPCOption configures an RPCSource.
type RPCOption func(*RPCSource)

// WithHTTPClient sets the HTTP client (default has a 10s timeout).
func WithHTTPClient(c *http.Client) RPCOption {
	return func(s *RPCSource) { s.client = c }
}

// WithRPCRetry sets how many times a failed call is attempted.
func WithRPCRetry(attempts uint, delay time.Duration) RPCOption {
	return func(s *RPCSource) {
		s.attempts = attempts
		s.delay = delay
	}
}

// WithProposalCache sets the capacity and lifetime of cached proposals.
func WithProposalCache(capacity int, ttl time.Duration) RPCOption {
	return func(s *RPCSource) {
		s.cache = cache.New(cache.AsLRU[string, *Proposal](lru.WithCapacity(capacity)))
		s.ttl = ttl
	}
}

// NewRPCSource creates a source talking to endpoint.
func NewRPCSource(endpoint string, opts ...RPCOption) *RPCSource {
	s := &RPCSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		delay:    250 * time.Millisecond,
		ttl:      10 * time.Minute,
		cache:    cache.New(cache.AsLRU[string, *Proposal](lru.WithCapacity(1024))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LastProposalID implements ProposalSource.
func (s *RPCSource) LastProposalID(ctx context.Context, dao string) (uint64, error) {
	var last uint64
	if err := s.view(ctx, dao, "get_last_proposal_id", struct{}{}, &last); err != nil {
		return 0, err
	}
	return last, nil
}

// Proposal implements ProposalSource.
func (s *RPCSource) Proposal(ctx context.Context, dao string, id uint64) (*Proposal, error) {
	key := dao + "/" + strconv.FormatUint(id, 10)
	if p, ok := s.cache.Get(key); ok {
		return p, nil
	}

	var p Proposal
	if err := s.view(ctx, dao, "get_proposal", map[string]uint64{"id": id}, &p); err != nil {
		return nil, err
	}
	if p.Status != ProposalInProgress {
		s.cache.Set(key, &p, cache.WithExpiration(s.ttl))
	}
	return &p, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

type rpcResponse struct {
	Result *struct {
		// Result is the raw return value as a byte array.
		Result []int  `json:"result"`
		Error  string `json:"error"`
	} `json:"result"`
	Error *struct {
		Name    string          `json:"name"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Cause   json.RawMessage `json:"cause"`
	} `json:"error"`
}

func (s *RPCSource) view(ctx context.Context, account, method string, args, out any) error {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("gate: encode args: %w", err)
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "bulkpay",
		Method:  "query",
		Params: rpcParams{
			RequestType: "call_function",
			Finality:    "final",
			AccountID:   account,
			MethodName:  method,
			ArgsBase64:  base64.StdEncoding.EncodeToString(rawArgs),
		},
	})
	if err != nil {
		return fmt.Errorf("gate: encode request: %w", err)
	}

	var result []byte
	err = retry.Do(
		func() error {
			r, callErr := s.call(ctx, body)
			if callErr != nil {
				return callErr
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, ErrRPC) }),
	)
	if err != nil {
		return fmt.Errorf("gate: %s.%s: %w", account, method, err)
	}

	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("gate: decode %s result: %w", method, err)
	}
	return nil
}

func (s *RPCSource) call(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrRPC, decoded.Error.Name, decoded.Error.Message)
	}
	if decoded.Result == nil {
		return nil, fmt.Errorf("%w: empty result", ErrRPC)
	}
	if decoded.Result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRPC, decoded.Result.Error)
	}

	out := make([]byte, len(decoded.Result.Result))
	for i, b := range decoded.Result.Result {
		out[i] = byte(b)
	}
	return out, nil
}
