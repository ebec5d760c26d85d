package main

// General API documentation for swaggo. Run `swag init -g cmd/sdmodeld/docs.go`
// to generate docs, then build with -tags=swagger to serve them.
//
// @title           sdmodeld API
// @version         1.0
// @description     HTTP API for Stable Diffusion model discovery, prompt normalization and embedding trigger resolution.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
