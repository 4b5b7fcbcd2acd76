package source

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ironsheep/image-extractor-mcp/internal/policy"
	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

const maxRedirects = 10

type fetcher struct {
	client *resty.Client
	guard  *policy.Guard
}

func newFetcher(guard *policy.Guard, timeout time.Duration) *fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/*,*/*;q=0.8").
		SetRedirectPolicy(
			resty.FlexibleRedirectPolicy(maxRedirects),
			resty.RedirectPolicyFunc(func(req *http.Request, _ []*http.Request) error {
				return guard.CheckURL(req.URL.String())
			}),
		)
	return &fetcher{client: client, guard: guard}
}

func (a *Acquirer) acquireURL(ctx context.Context, r URLRequest) (*Raw, error) {
	if err := a.guard.CheckURL(r.URL); err != nil {
		return nil, err
	}
	data, contentType, err := a.fetcher.get(ctx, strings.TrimSpace(r.URL))
	if err != nil {
		return nil, err
	}

	mimeType := DefaultURLMIME
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mimeType = mt
		}
	}
	return &Raw{Bytes: data, MimeType: mimeType, ContentType: contentType, Source: SourceURL}, nil
}

// get downloads url and returns the body and Content-Type header.
func (f *fetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		var te *toolerr.Error
		if errors.As(err, &te) {
			return nil, "", te
		}
		return nil, "", toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to fetch image")
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, "", toolerr.New(toolerr.AcquisitionFailure, "failed to fetch image: HTTP %d", resp.StatusCode())
	}
	if n := resp.RawResponse.ContentLength; n > 0 {
		if err := f.guard.CheckSize(n); err != nil {
			return nil, "", err
		}
	}

	data, err := f.guard.ReadAll(body)
	if err != nil {
		if toolerr.Is(err, toolerr.SizeExceeded) {
			return nil, "", err
		}
		return nil, "", toolerr.Wrap(toolerr.AcquisitionFailure, err, fmt.Sprintf("failed to download %s", url))
	}
	return data, resp.Header().Get("Content-Type"), nil
}
