package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/upsert"
)

// Client talks to a Server.
type Client struct {
	base  string
	token string
	hc    *http.Client
}

// NewClient produces a Client for the server at base, e.g. "http://localhost:8080".
// The token, if not empty, is sent as a bearer token.
func NewClient(base, token string) *Client {
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		token: token,
		hc:    cleanhttp.DefaultPooledClient(),
	}
}

// Submit sends a batch to POST /seguid.
// Any response other than 200 is an error,
// wrapping seguid.ErrMalformed for 400 and upsert.ErrUnauthorized for 401.
func (c *Client) Submit(ctx context.Context, subs []upsert.Submission) (upsert.Result, error) {
	body, err := upsert.MarshalSubmissions(subs)
	if err != nil {
		return upsert.Result{}, errors.Wrap(err, "encoding submissions")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/seguid", bytes.NewReader(body))
	if err != nil {
		return upsert.Result{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	var res upsert.Result
	err = c.do(req, &res)
	return res, err
}

// Lookup sends a forward query to GET /seguid/{seguids}.
// Unknown Seguids map to empty lists.
func (c *Client) Lookup(ctx context.Context, fps []seguid.Seguid) (map[seguid.Seguid][]string, error) {
	strs := make([]string, 0, len(fps))
	for _, fp := range fps {
		strs = append(strs, string(fp))
	}

	var raw map[string]json.RawMessage
	if err := c.get(ctx, "/seguid/"+strings.Join(strs, ","), &raw); err != nil {
		return nil, err
	}

	out := make(map[seguid.Seguid][]string, len(fps))
	for k, v := range raw {
		if k == "result" {
			continue
		}
		var ids []string
		if err := json.Unmarshal(v, &ids); err != nil {
			return nil, errors.Wrapf(err, "decoding ids for %s", k)
		}
		out[seguid.Seguid(k)] = ids
	}
	return out, nil
}

// LookupIDs sends a reverse query to GET /id/{ids}.
// Unknown identifiers map to the empty Seguid.
func (c *Client) LookupIDs(ctx context.Context, ids []string) (map[string]seguid.Seguid, error) {
	escaped := make([]string, 0, len(ids))
	for _, id := range ids {
		escaped = append(escaped, url.PathEscape(id))
	}

	var raw map[string]string
	if err := c.get(ctx, "/id/"+strings.Join(escaped, ","), &raw); err != nil {
		return nil, err
	}

	out := make(map[string]seguid.Seguid, len(ids))
	for _, id := range ids {
		out[id] = seguid.Seguid(raw[id])
	}
	return out, nil
}

// get treats 404 as a successful response, since lookups report misses in the body.
func (c *Client) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	err = c.do(req, v)
	var serr statusError
	if errors.As(err, &serr) && serr.code == http.StatusNotFound {
		return json.Unmarshal(serr.body, v)
	}
	return err
}

type statusError struct {
	code int
	body []byte
}

func (e statusError) Error() string {
	return "server responded " + http.StatusText(e.code) + ": " + strings.TrimSpace(string(e.body))
}

func (c *Client) do(req *http.Request, v interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return errors.Wrap(json.Unmarshal(body, v), "decoding response")
	case http.StatusBadRequest:
		return errors.Wrap(seguid.ErrMalformed, string(bytes.TrimSpace(body)))
	case http.StatusUnauthorized:
		return upsert.ErrUnauthorized
	}
	return statusError{code: resp.StatusCode, body: body}
}
