package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	restPrefix            = "/rest/v1/"
	defaultRequestTimeout = 10 * time.Second
)

type RestConfig struct {
	BaseURL string
	APIKey  string
	// Token is sent as the bearer token. Defaults to APIKey.
	Token   string
	Timeout time.Duration
}

// RestStrategy talks to the hosted table API.
type RestStrategy struct {
	baseURL string
	apiKey  string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
	metrics *Metrics
}

func NewRestStrategy(cfg RestConfig, metrics *Metrics) *RestStrategy {
	token := cfg.Token
	if token == "" {
		token = cfg.APIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &RestStrategy{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		token:   token,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "weekly-finals",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		metrics: metrics,
	}
}

func (s *RestStrategy) Name() string { return "rest" }

type restResponse struct {
	status       int
	body         []byte
	contentRange string
}

func (s *RestStrategy) do(ctx context.Context, op, method, path, query string, payload any, prefer string) (*restResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Op: op, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := s.baseURL + restPrefix + path
	if query != "" {
		uri += "?" + query
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("supabase %s: failed to encode body: %w", op, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(body)
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, &NetworkError{Op: op, Timeout: isTimeout(err), Err: err}
	}

	out := &restResponse{
		status:       resp.StatusCode(),
		body:         append([]byte(nil), resp.Body()...),
		contentRange: string(resp.Header.Peek("Content-Range")),
	}
	if out.status >= 400 {
		return nil, remoteError(op, out.status, out.body)
	}
	return out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func remoteError(op string, status int, body []byte) *RemoteRequestError {
	re := &RemoteRequestError{Op: op, StatusCode: status}
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		re.Message, re.Code, re.Details, re.Hint = payload.Message, payload.Code, payload.Details, payload.Hint
		if re.Message == "" {
			re.Message = payload.Error
		}
	}
	if re.Message == "" {
		re.Message = strings.TrimSpace(string(body))
	}
	return re
}

func decodeJSON(body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeRecords accepts an array of objects, a single object or nothing.
func decodeRecords(op string, body []byte) ([]Record, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("supabase %s: failed to decode response: %w", op, err)
	}
	switch val := v.(type) {
	case nil:
		return []Record{}, nil
	case map[string]any:
		return []Record{normalizeRecord(val)}, nil
	case []any:
		out := make([]Record, 0, len(val))
		for _, item := range val {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("supabase %s: unexpected array element %T", op, item)
			}
			out = append(out, normalizeRecord(obj))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("supabase %s: unexpected response type %T", op, v)
	}
}

// contentRangeTotal reads the total from "0-9/10" or "*/10".
func contentRangeTotal(h string) (int64, bool) {
	idx := strings.LastIndex(h, "/")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(h[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func tablePath(table string) string {
	return url.PathEscape(table)
}

func (s *RestStrategy) Select(ctx context.Context, q Query) (records []Record, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "select", start, err) }(time.Now())

	resp, err := s.do(ctx, "select "+q.Table, fasthttp.MethodGet, tablePath(q.Table), encodeSelect(q), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeRecords("select "+q.Table, resp.body)
}

func (s *RestStrategy) Insert(ctx context.Context, table string, rec Record) (res *InsertResult, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "insert", start, err) }(time.Now())

	resp, err := s.do(ctx, "insert "+table, fasthttp.MethodPost, tablePath(table), "", rec, "return=representation")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRecords("insert "+table, resp.body)
	if err != nil {
		return nil, err
	}
	return &InsertResult{Rows: rows}, nil
}

func (s *RestStrategy) Update(ctx context.Context, table string, patch Record, where Filter) (n int64, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "update", start, err) }(time.Now())

	if len(where) == 0 {
		return 0, ErrUnfilteredMutation
	}
	resp, err := s.do(ctx, "update "+table, fasthttp.MethodPatch, tablePath(table), encodeFilter(where), patch, "return=representation,count=exact")
	if err != nil {
		return 0, err
	}
	return affectedRows("update "+table, resp)
}

func (s *RestStrategy) Delete(ctx context.Context, table string, where Filter) (n int64, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "delete", start, err) }(time.Now())

	if len(where) == 0 {
		return 0, ErrUnfilteredMutation
	}
	resp, err := s.do(ctx, "delete "+table, fasthttp.MethodDelete, tablePath(table), encodeFilter(where), nil, "return=representation,count=exact")
	if err != nil {
		return 0, err
	}
	return affectedRows("delete "+table, resp)
}

// affectedRows is best effort: the returned representation wins, then the
// Content-Range total, then zero.
func affectedRows(op string, resp *restResponse) (int64, error) {
	rows, err := decodeRecords(op, resp.body)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return int64(len(rows)), nil
	}
	if total, ok := contentRangeTotal(resp.contentRange); ok {
		return total, nil
	}
	return 0, nil
}

func (s *RestStrategy) Call(ctx context.Context, name string, params Record) (result any, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "rpc", start, err) }(time.Now())

	if params == nil {
		params = Record{}
	}
	resp, err := s.do(ctx, "rpc "+name, fasthttp.MethodPost, "rpc/"+url.PathEscape(name), "", params, "")
	if err != nil {
		return nil, err
	}
	v, err := decodeJSON(resp.body)
	if err != nil {
		return nil, fmt.Errorf("supabase rpc %s: failed to decode response: %w", name, err)
	}
	switch val := v.(type) {
	case []any:
		if rows, err := decodeRecords("rpc "+name, resp.body); err == nil {
			return rows, nil
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out, nil
	case map[string]any:
		return normalizeRecord(val), nil
	default:
		return normalizeValue(val), nil
	}
}
