package livedata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kodexhq/kodex/infrastructure/toolserver"
)

// BridgeAdapter forwards every Adapter call as a toolserver wire-protocol
// request to an out-of-process target application. The target is expected to expose the same
// {id?,tool,params} / {id?,ok,result?|error,error_type?,timing_ms} HTTP
// surface as infrastructure/toolserver.HTTPHandler.
type BridgeAdapter struct {
	endpoint string
	client   *http.Client
}

// NewBridgeAdapter points a BridgeAdapter at a remote tool server endpoint.
func NewBridgeAdapter(endpoint string) *BridgeAdapter {
	return &BridgeAdapter{endpoint: endpoint, client: &http.Client{Timeout: 30 * time.Second}}
}

var _ Adapter = (*BridgeAdapter)(nil)

// SendRequest performs one framed round-trip against the remote endpoint.
func (b *BridgeAdapter) SendRequest(ctx context.Context, req toolserver.Request) (toolserver.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return toolserver.Response{}, fmt.Errorf("livedata: marshal bridge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return toolserver.Response{}, fmt.Errorf("livedata: build bridge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return toolserver.Response{}, fmt.Errorf("livedata: bridge request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp toolserver.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return toolserver.Response{}, fmt.Errorf("livedata: decode bridge response: %w", err)
	}
	return resp, nil
}

func (b *BridgeAdapter) call(ctx context.Context, tool string, params Row) (any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	resp, err := b.SendRequest(ctx, toolserver.Request{Tool: tool, Params: raw})
	if err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, toolserver.NewHandlerError(resp.ErrorType, resp.Error)
	}
	return resp.Result, nil
}

func (b *BridgeAdapter) Count(ctx context.Context, model string, conditions Row) (int64, error) {
	result, err := b.call(ctx, "count", mergeParams(Row{"model": model}, "conditions", conditions))
	if err != nil {
		return 0, err
	}
	return toInt64(result), nil
}

func (b *BridgeAdapter) Sample(ctx context.Context, model string, limit int) ([]Row, error) {
	result, err := b.call(ctx, "sample", Row{"model": model, "limit": limit})
	return asRows(result), err
}

func (b *BridgeAdapter) Find(ctx context.Context, model, column string, value any) (Row, bool, error) {
	result, err := b.call(ctx, "find", Row{"model": model, "column": column, "value": value})
	if err != nil {
		return nil, false, err
	}
	row, ok := result.(map[string]any)
	return row, ok && row != nil, nil
}

func (b *BridgeAdapter) Pluck(ctx context.Context, model string, columns []string, distinct bool, limit int) ([]Row, error) {
	result, err := b.call(ctx, "pluck", Row{"model": model, "columns": columns, "distinct": distinct, "limit": limit})
	return asRows(result), err
}

func (b *BridgeAdapter) Aggregate(ctx context.Context, model, fn, column string) (float64, error) {
	result, err := b.call(ctx, "aggregate", Row{"model": model, "function": fn, "column": column})
	if err != nil {
		return 0, err
	}
	return toFloat64(result), nil
}

func (b *BridgeAdapter) AssociationCount(ctx context.Context, model, id, association string) (int64, error) {
	result, err := b.call(ctx, "association_count", Row{"model": model, "id": id, "association": association})
	if err != nil {
		return 0, err
	}
	return toInt64(result), nil
}

func (b *BridgeAdapter) Schema(ctx context.Context, model string, withIndexes bool) (SchemaInfo, error) {
	result, err := b.call(ctx, "schema", Row{"model": model, "with_indexes": withIndexes})
	if err != nil {
		return SchemaInfo{}, err
	}
	var info SchemaInfo
	raw, _ := json.Marshal(result)
	_ = json.Unmarshal(raw, &info)
	return info, nil
}

func (b *BridgeAdapter) Recent(ctx context.Context, model, orderBy, direction string, limit int) ([]Row, error) {
	result, err := b.call(ctx, "recent", Row{"model": model, "order_by": orderBy, "direction": direction, "limit": limit})
	return asRows(result), err
}

func (b *BridgeAdapter) Status(ctx context.Context) (StatusInfo, error) {
	result, err := b.call(ctx, "status", Row{})
	if err != nil {
		return StatusInfo{}, err
	}
	var info StatusInfo
	raw, _ := json.Marshal(result)
	_ = json.Unmarshal(raw, &info)
	return info, nil
}

func (b *BridgeAdapter) Exec(ctx context.Context, tool string, params Row) (any, error) {
	return b.call(ctx, tool, params)
}

func mergeParams(base Row, key string, value any) Row {
	base[key] = value
	return base
}

func asRows(result any) []Row {
	list, ok := result.([]any)
	if !ok {
		return nil
	}
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
