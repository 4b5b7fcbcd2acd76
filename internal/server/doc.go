// Package server exposes the image extraction tools over MCP (Model Context
// Protocol) on stdio.
//
// # Tools
//
//   - extract_image_from_file: read a local image
//   - extract_image_from_url: download an image over http(s)
//   - extract_image_from_base64: decode an inline image
//   - extract_screenshot_from_url: render a page in headless Chrome
//   - save_screenshot: write a base64 image to the screenshots directory
//
// The four extraction tools share one flow: validate, acquire, normalize,
// optionally OCR, then assemble a result holding a minified JSON metadata
// text block followed by the image block. Every failure is reported as a
// single "Error: <message>" text block with isError set; no tool error is
// ever surfaced as a protocol error.
//
// # Protocol
//
// JSON-RPC framing, initialize, tools/list and tools/call are handled by
// mcp-go. stdout carries only protocol messages; all logging goes to the
// configured zap logger.
package server
