package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// newMockStore returns a Store backed by an in-memory fake HTTP transport
// implementing the subset of S3 that Store uses, conditional writes included.
func newMockStore() (*Store, *mockRoundTripper) {
	rt := &mockRoundTripper{state: make(map[string]mockObj)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return New(client, "mock-bucket"), rt
}

type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string]mockObj
	gen   int

	// pageSize, if positive, limits the number of keys per listing page.
	pageSize int
}

type mockObj struct {
	body []byte
	etag string
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req), nil
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		cur, exists := m.state[key]
		if req.Header.Get("If-None-Match") == "*" && exists {
			return errorResponse(http.StatusPreconditionFailed, "PreconditionFailed"), nil
		}
		if ifMatch := req.Header.Get("If-Match"); ifMatch != "" && (!exists || ifMatch != cur.etag) {
			if !exists {
				return errorResponse(http.StatusNotFound, "NoSuchKey"), nil
			}
			return errorResponse(http.StatusPreconditionFailed, "PreconditionFailed"), nil
		}
		m.gen++
		etag := `"v` + strconv.Itoa(m.gen) + `"`
		m.state[key] = mockObj{body: body, etag: etag}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"Etag": {etag}}}, nil

	case http.MethodGet:
		st, ok := m.state[key]
		if !ok {
			return errorResponse(http.StatusNotFound, "NoSuchKey"), nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(st.body)), Header: http.Header{
			"Content-Length": {strconv.Itoa(len(st.body))},
			"Etag":           {st.etag},
		}, ContentLength: int64(len(st.body))}, nil
	}
	return errorResponse(http.StatusNotImplemented, "NotImplemented"), nil
}

func (m *mockRoundTripper) list(req *http.Request) *http.Response {
	var (
		q          = req.URL.Query()
		prefix     = q.Get("prefix")
		startAfter = q.Get("start-after")
		cont       = q.Get("continuation-token")
	)
	if cont != "" {
		startAfter = cont
	}

	var keys []string
	for k := range m.state {
		if strings.HasPrefix(k, prefix) && k > startAfter {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var truncated bool
	if m.pageSize > 0 && len(keys) > m.pageSize {
		keys = keys[:m.pageSize]
		truncated = true
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	fmt.Fprintf(&b, "<IsTruncated>%v</IsTruncated>", truncated)
	if truncated {
		b.WriteString("<NextContinuationToken>")
		xml.EscapeText(&b, []byte(keys[len(keys)-1]))
		b.WriteString("</NextContinuationToken>")
	}
	for _, k := range keys {
		b.WriteString("<Contents><Key>")
		xml.EscapeText(&b, []byte(k))
		fmt.Fprintf(&b, "</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", len(m.state[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())), Header: http.Header{"Content-Type": {"application/xml"}}}
}

func errorResponse(status int, code string) *http.Response {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

// decodeChunked decodes a minimal single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	sz, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != sz || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}
