// Package apiclient is a Go client for the grid HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
	"github.com/maruel/sheetgrid/internal/server/dto"
)

// Client talks to a grid server.
type Client struct {
	baseURL string
	hc      *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), hc: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateTable registers a table.
func (c *Client) CreateTable(ctx context.Context, name string) (*grid.Table, error) {
	out := &grid.Table{}
	if err := c.do(ctx, http.MethodPost, "/api/tables", &dto.CreateTableRequest{Name: name}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetColumns lists a table's columns in display order.
func (c *Client) GetColumns(ctx context.Context, tableID string) ([]*grid.Column, error) {
	out := &dto.ColumnsResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/tables/"+url.PathEscape(tableID)+"/columns", nil, out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

// CreateColumn appends a column.
func (c *Client) CreateColumn(ctx context.Context, tableID, name string, t grid.ColumnType) (*grid.Column, error) {
	out := &grid.Column{}
	in := &dto.CreateColumnRequest{Name: name, Type: t}
	if err := c.do(ctx, http.MethodPost, "/api/tables/"+url.PathEscape(tableID)+"/columns", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRow appends an empty row and returns its ID and placement index.
func (c *Client) CreateRow(ctx context.Context, tableID string) (*dto.CreateRowResponse, error) {
	out := &dto.CreateRowResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/tables/"+url.PathEscape(tableID)+"/rows", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryWindow fetches one window of rows.
func (c *Client) QueryWindow(ctx context.Context, req *grid.WindowRequest) (*grid.WindowResponse, error) {
	in := &dto.QueryRowsRequest{
		StartIndex: req.StartIndex,
		WindowSize: req.WindowSize,
		Filters:    req.Filters,
		Sort:       req.Sort,
	}
	out := &grid.WindowResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/tables/"+url.PathEscape(req.TableID)+"/rows/query", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCell overwrites one cell.
func (c *Client) UpdateCell(ctx context.Context, rowID, columnID string, value any) error {
	p := "/api/rows/" + url.PathEscape(rowID) + "/cells/" + url.PathEscape(columnID)
	return c.do(ctx, http.MethodPut, p, &dto.UpdateCellRequest{Value: value}, &dto.UpdateCellResponse{})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error envelope back into an *apierrors.APIError so
// callers can use apierrors.HasCode.
func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var e dto.ErrorResponse
	if err := json.Unmarshal(b, &e); err != nil || e.Error.Code == "" {
		return apierrors.NewAPIError(resp.StatusCode, apierrors.ErrInternal,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(b)))
	}
	return apierrors.NewAPIError(resp.StatusCode, apierrors.ErrorCode(e.Error.Code), e.Error.Message).WithDetails(e.Details)
}
