package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// BulkOperation is a single index action of a bulk request.
type BulkOperation struct {
	Index   string
	ID      string
	Routing string
	Source  any
}

// BulkItem is the outcome of one operation in a bulk response.
type BulkItem struct {
	ID          string
	Status      int
	ErrorType   string
	ErrorReason string
}

// Failed reports whether the operation was rejected.
func (i BulkItem) Failed() bool {
	return i.Status >= 300 || i.ErrorType != ""
}

// BulkResult holds the per-operation outcome of a bulk request.
type BulkResult struct {
	Took  int
	Items []BulkItem
}

// Failed returns the rejected operations.
func (r *BulkResult) Failed() []BulkItem {
	var failed []BulkItem
	for _, item := range r.Items {
		if item.Failed() {
			failed = append(failed, item)
		}
	}
	return failed
}

type bulkMeta struct {
	Index struct {
		Index   string `json:"_index"`
		ID      string `json:"_id"`
		Routing string `json:"routing,omitempty"`
	} `json:"index"`
}

type bulkResponse struct {
	Took   int  `json:"took"`
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// encodeBulk renders ops as the newline-delimited body of a _bulk request.
func encodeBulk(ops []BulkOperation) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, op := range ops {
		var meta bulkMeta
		meta.Index.Index = op.Index
		meta.Index.ID = op.ID
		meta.Index.Routing = op.Routing
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action for %s: %w", op.ID, err)
		}
		if err := enc.Encode(op.Source); err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", op.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// Bulk submits ops as one _bulk request. A nil error only means the request
// itself was accepted; individual rejections are reported in the result.
func (c *Client) Bulk(ctx context.Context, ops []BulkOperation) (*BulkResult, error) {
	if len(ops) == 0 {
		return &BulkResult{}, nil
	}

	body, err := encodeBulk(ops)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Bulk(bytes.NewReader(body), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to submit bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("submitting bulk request", res)
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := &BulkResult{Took: br.Took, Items: make([]BulkItem, 0, len(br.Items))}
	for _, entry := range br.Items {
		for _, item := range entry {
			bi := BulkItem{ID: item.ID, Status: item.Status}
			if item.Error != nil {
				bi.ErrorType = item.Error.Type
				bi.ErrorReason = item.Error.Reason
			}
			result.Items = append(result.Items, bi)
		}
	}
	return result, nil
}
