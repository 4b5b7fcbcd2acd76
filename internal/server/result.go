package server

import (
	"encoding/base64"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ironsheep/image-extractor-mcp/internal/imaging"
	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// metadata is the JSON text block preceding every returned image.
type metadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int    `json:"size"`

	Path           string    `json:"path,omitempty"`
	URL            string    `json:"url,omitempty"`
	ContentType    string    `json:"content_type,omitempty"`
	MimeType       string    `json:"mime_type,omitempty"`
	Viewport       *viewport `json:"viewport,omitempty"`
	FullPage       *bool     `json:"full_page,omitempty"`
	ClickSelector  string    `json:"click_selector,omitempty"`
	ClickWaitAfter *int      `json:"click_wait_after,omitempty"`

	OriginalWidth  int               `json:"original_width"`
	OriginalHeight int               `json:"original_height"`
	Resized        bool              `json:"resized"`
	Warnings       []toolerr.Warning `json:"warnings,omitempty"`
	Text           *string           `json:"text,omitempty"`
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (m *metadata) describe(res *imaging.Result) {
	m.Width = res.Width
	m.Height = res.Height
	m.Format = res.Format
	m.Size = res.Size()
	m.OriginalWidth = res.OriginalWidth
	m.OriginalHeight = res.OriginalHeight
	m.Resized = res.Resized
}

// responseMIME keeps the source's declared MIME type unless normalization
// changed the encoding.
func responseMIME(declared string, res *imaging.Result) string {
	if res.Format != res.OriginalFormat && res.MimeType != "" {
		return res.MimeType
	}
	if declared == "" {
		return res.MimeType
	}
	return declared
}

// imageResult builds a success result: metadata text, then the image.
func imageResult(meta *metadata, data []byte, mimeType string) (*mcp.CallToolResult, error) {
	text, err := json.Marshal(meta)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.Internal, err, "failed to encode metadata")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(text)),
			mcp.NewImageContent(base64.StdEncoding.EncodeToString(data), mimeType),
		},
	}, nil
}

// textResult builds a success result holding v as minified JSON.
func textResult(v interface{}) (*mcp.CallToolResult, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.Internal, err, "failed to encode result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(text))},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("Error: " + err.Error())
}
