//go:build !linux && !tinygo

package hal

import (
	"context"
	"errors"
)

// PeriphConfig describes two ST7789 panels on a Linux SPI port.
type PeriphConfig struct {
	SPIPort      string
	SPIMHz       int
	DC           string
	RST          string
	CS           []string
	LeadOffPlus  string
	LeadOffMinus string
	FlashPath    string
	Hz           int
	Ticks        uint64
}

func DefaultPeriphConfig() PeriphConfig { return PeriphConfig{Hz: 60} }

func RunPeriph(_ context.Context, _ func(HAL) func() error, _ PeriphConfig) error {
	return errors.New("periph backend requires linux")
}
