package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/broady/rpcontract"
	"github.com/google/uuid"
)

// HTTPTransport posts invocations to a Server mounted at URL.
// Standard invocations are sent as rpcontract.Invocation; JSON-RPC ones as
// JSON-RPC 2.0 requests with a random id.
type HTTPTransport struct {
	URL string

	// Client defaults to http.DefaultClient.
	Client *http.Client

	// Header is added to every request.
	Header http.Header
}

var _ rpcontract.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport for url using http.DefaultClient.
func NewHTTPTransport(url string) *HTTPTransport {
	return &HTTPTransport{URL: url}
}

// Invoke implements rpcontract.Transport.
func (t *HTTPTransport) Invoke(ctx context.Context, inv rpcontract.Invocation) (json.RawMessage, error) {
	var body any = inv
	var id string
	if inv.Dialect == rpcontract.JSONRPC {
		id = uuid.NewString()
		req := jsonrpcRequest{JSONRPC: jsonrpcVersion, ID: id, Method: inv.Operation, Params: inv.Args}
		if inv.Instance != nil {
			req.Params = jsonrpcParams{Instance: inv.Instance, Args: inv.Args}
		}
		body = req
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "encode invocation: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if inv.Dialect == rpcontract.JSONRPC {
		return decodeJSONRPC(payload, id, resp.StatusCode)
	}
	return decodeStandard(payload, resp.StatusCode)
}

func decodeStandard(payload []byte, status int) (json.RawMessage, error) {
	var env standardResponse
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, rpcontract.Errorf(rpcontract.CodeInternal, "decode response (HTTP %d): %v", status, err)
	}
	if env.Error != nil {
		return nil, env.Error
	}
	if status >= http.StatusBadRequest {
		return nil, rpcontract.Errorf(rpcontract.CodeInternal, "HTTP %d without error envelope", status)
	}
	return env.Result, nil
}

func decodeJSONRPC(payload []byte, id string, status int) (json.RawMessage, error) {
	var env jsonrpcResponse
	if err := json.Unmarshal(payload, &env); err != nil {
		// Transport-level failures come back in the standard envelope.
		if res, serr := decodeStandard(payload, status); serr != nil {
			return res, serr
		}
		return nil, rpcontract.Errorf(rpcontract.CodeInternal, "decode jsonrpc response (HTTP %d): %v", status, err)
	}
	if env.JSONRPC != jsonrpcVersion {
		return decodeStandard(payload, status)
	}
	if env.Error != nil {
		return nil, env.Error.asError()
	}
	var gotID string
	if err := json.Unmarshal(env.ID, &gotID); err != nil || gotID != id {
		return nil, rpcontract.Errorf(rpcontract.CodeInternal, "jsonrpc response id %s does not match request %q", env.ID, id)
	}
	return env.Result, nil
}
