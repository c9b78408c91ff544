//go:build tinygo

package main

import (
	"ecgscope/app"
	"ecgscope/hal"
)

func main() {
	cfg := app.DefaultConfig()
	// The sink defaults to the HAL's UART logger.
	cfg.Log.Format = "console"
	app.Run(hal.New(), cfg)
}
