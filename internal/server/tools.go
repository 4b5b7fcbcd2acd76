package server

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ironsheep/image-extractor-mcp/internal/browser"
	"github.com/ironsheep/image-extractor-mcp/internal/config"
	"github.com/ironsheep/image-extractor-mcp/internal/ocr"
)

// Tool names.
const (
	ToolExtractFile       = "extract_image_from_file"
	ToolExtractURL        = "extract_image_from_url"
	ToolExtractBase64     = "extract_image_from_base64"
	ToolExtractScreenshot = "extract_screenshot_from_url"
	ToolSaveScreenshot    = "save_screenshot"
)

// registerTools adds every tool and its handler to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(fileTool(), s.instrument(ToolExtractFile, s.handleExtractFile))
	s.mcp.AddTool(urlTool(), s.instrument(ToolExtractURL, s.handleExtractURL))
	s.mcp.AddTool(base64Tool(), s.instrument(ToolExtractBase64, s.handleExtractBase64))
	s.mcp.AddTool(screenshotTool(), s.instrument(ToolExtractScreenshot, s.handleExtractScreenshot))
	s.mcp.AddTool(saveScreenshotTool(), s.instrument(ToolSaveScreenshot, s.handleSaveScreenshot))
}

// normalizationOptions are shared by all extraction tools.
func normalizationOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithBoolean("resize",
			mcp.Description("Scale the image down to fit max_width x max_height. Images are always kept within the server's hard size limit."),
			mcp.DefaultBool(true),
		),
		mcp.WithNumber("max_width",
			mcp.Description("Maximum width in pixels. Values above the server limit are capped."),
			mcp.DefaultNumber(config.DefaultMaxDimension),
			mcp.Min(1),
		),
		mcp.WithNumber("max_height",
			mcp.Description("Maximum height in pixels. Values above the server limit are capped."),
			mcp.DefaultNumber(config.DefaultMaxDimension),
			mcp.Min(1),
		),
		mcp.WithBoolean("extract_text",
			mcp.Description("Run OCR on the image and include the recognized text in the metadata."),
			mcp.DefaultBool(false),
		),
		mcp.WithString("ocr_language",
			mcp.Description("Tesseract language code(s) for OCR, e.g. \"eng\" or \"eng+deu\"."),
			mcp.DefaultString(ocr.DefaultLanguage),
		),
	}
}

func fileTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Extract an image from a local file. Returns metadata and the image, resized to fit model limits."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the image file. ~/ expands to the home directory."),
		),
	}
	return mcp.NewTool(ToolExtractFile, append(opts, normalizationOptions()...)...)
}

func urlTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Download an image from an http(s) URL. Returns metadata and the image, resized to fit model limits."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL of the image"),
		),
	}
	return mcp.NewTool(ToolExtractURL, append(opts, normalizationOptions()...)...)
}

func base64Tool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Decode a base64 image (plain or data: URI). Returns metadata and the image, resized to fit model limits."),
		mcp.WithString("base64",
			mcp.Required(),
			mcp.Description("Base64-encoded image data"),
		),
		mcp.WithString("mime_type",
			mcp.Description("MIME type of the image"),
			mcp.DefaultString("image/png"),
		),
	}
	return mcp.NewTool(ToolExtractBase64, append(opts, normalizationOptions()...)...)
}

func screenshotTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Render a web page in a headless browser and return a PNG screenshot. Optionally waits for a selector or clicks an element first."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL of the page to capture"),
		),
		mcp.WithNumber("viewport_width",
			mcp.Description("Browser viewport width in pixels"),
			mcp.DefaultNumber(browser.DefaultViewportWidth),
			mcp.Min(1),
		),
		mcp.WithNumber("viewport_height",
			mcp.Description("Browser viewport height in pixels"),
			mcp.DefaultNumber(browser.DefaultViewportHeight),
			mcp.Min(1),
		),
		mcp.WithBoolean("full_page",
			mcp.Description("Capture the full scrollable page instead of only the viewport"),
			mcp.DefaultBool(true),
		),
		mcp.WithNumber("wait_for_load",
			mcp.Description("Extra milliseconds to wait after the network is idle"),
			mcp.DefaultNumber(float64(browser.DefaultWaitForLoad.Milliseconds())),
			mcp.Min(0),
		),
		mcp.WithString("wait_for_selector",
			mcp.Description("CSS selector to wait for before capturing (up to 10s)"),
		),
		mcp.WithString("click_selector",
			mcp.Description("CSS selector of an element to click before capturing"),
		),
		mcp.WithNumber("click_wait_after",
			mcp.Description("Milliseconds to wait after clicking"),
			mcp.DefaultNumber(float64(browser.DefaultClickWaitAfter.Milliseconds())),
			mcp.Min(0),
		),
	}
	return mcp.NewTool(ToolExtractScreenshot, append(opts, normalizationOptions()...)...)
}

func saveScreenshotTool() mcp.Tool {
	return mcp.NewTool(ToolSaveScreenshot,
		mcp.WithDescription("Save a base64 image to the screenshots directory and report the saved path and size."),
		mcp.WithString("base64",
			mcp.Required(),
			mcp.Description("Base64-encoded image data"),
		),
		mcp.WithString("filename",
			mcp.Description("File name without directory. Defaults to screenshot-<timestamp>."),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("png", "jpg", "jpeg", "webp"),
			mcp.DefaultString("png"),
		),
	)
}
