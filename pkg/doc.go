// Package pkg holds the libraries behind captioner.
//
// The data flow for one request:
//
//	input bytes
//	     ↓
//	[codec] decode PNG, JPEG, GIF, WebP or BMP
//	     ↓
//	[caption/canvas] upscale small inputs
//	     ↓
//	[caption/layout] split the title into lines
//	     ↓
//	[caption/compose] draw the band and paste the image
//	     ↓
//	[codec] encode PNG, JPEG or GIF
//
// Animated GIFs run the same steps per frame through [caption/animate].
// [pipeline] ties the stages together with [cache] and is shared by the
// CLI and the HTTP server. [config] loads settings from TOML, [fonts]
// provides glyph metrics, and [errors] defines the error codes every
// package reports.
package pkg
