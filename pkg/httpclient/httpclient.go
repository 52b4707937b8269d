package httpclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/valyala/fasthttp"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	// Timeout bounds a request when the context carries no deadline.
	Timeout time.Duration

	// Default headers
	Headers map[string]string

	// Debug logs every finished request.
	Debug bool
}

type Client struct {
	baseURL *url.URL
	client  *fasthttp.Client
	Config
}

func New(baseURL string, config ...Config) (*Client, error) {
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse base url")
	}
	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	var cf Config
	if len(config) > 0 {
		cf = config[0]
	}
	if cf.Timeout <= 0 {
		cf.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: parsedBaseURL,
		client:  &fasthttp.Client{},
		Config:  cf,
	}, nil
}

type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= fasthttp.StatusOK && r.StatusCode < fasthttp.StatusMultipleChoices
}

// UnmarshalBody decodes a JSON body into out.
func (r *Response) UnmarshalBody(out any) error {
	mediaType, _, _ := mime.ParseMediaType(r.ContentType)
	if mediaType != "application/json" {
		return errors.Errorf("unsupported content type %q from %s", r.ContentType, r.URL)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return errors.Wrapf(err, "can't unmarshal json body from %s, %q", r.URL, string(r.Body))
	}
	return nil
}

// Get sends a GET request for p, relative to the base url.
func (h *Client) Get(ctx context.Context, p string, query url.Values) (*Response, error) {
	return h.do(ctx, fasthttp.MethodGet, p, query)
}

func (h *Client) do(ctx context.Context, method, p string, query url.Values) (*Response, error) {
	target := *h.baseURL
	target.Path = path.Join(target.Path, p)
	if len(query) > 0 {
		q := target.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		target.RawQuery = q.Encode()
	}
	uri := target.String()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()
	req.Header.SetMethod(method)
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	req.SetRequestURI(uri)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(h.Timeout)
	}

	start := time.Now()
	if err := h.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.Wrapf(err, "url: %s", uri)
	}
	if h.Debug {
		logger.DebugContext(ctx, "Finished request",
			slog.String("package", "httpclient"),
			slog.String("method", method),
			slog.String("url", uri),
			slog.Int("status_code", resp.StatusCode()),
			slog.Duration("latency", time.Since(start)),
		)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, errors.Wrapf(err, "can't uncompress body from %s", uri)
	}
	return &Response{
		URL:         uri,
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), body...),
	}, nil
}
