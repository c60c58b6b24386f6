// Package serialport opens the Arduino's USB serial link.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ErrNoDevice is returned by Detect when no attached port looks like an Arduino.
var ErrNoDevice = errors.New("no Arduino serial port found")

const (
	vidArduino = "2341"
	vidCH340   = "1A86"
)

type Options struct {
	// Path is the device, e.g. /dev/ttyACM0. Empty means auto-detect.
	Path        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Info describes one enumerated port.
type Info struct {
	Name      string `json:"name"`
	Product   string `json:"product,omitempty"`
	VID       string `json:"vid,omitempty"`
	PID       string `json:"pid,omitempty"`
	Serial    string `json:"serial,omitempty"`
	IsUSB     bool   `json:"usb"`
	IsArduino bool   `json:"arduino"`
}

// List enumerates every serial port on the host.
func List() ([]Info, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	out := make([]Info, 0, len(ports))
	for _, p := range ports {
		info := Info{
			Name:    p.Name,
			Product: p.Product,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			IsUSB:   p.IsUSB,
		}
		info.IsArduino = looksLikeArduino(info)
		out = append(out, info)
	}
	return out, nil
}

// Detect returns the first port that looks like an Arduino or a CH340 clone.
func Detect() (string, error) {
	ports, err := List()
	if err != nil {
		return "", err
	}
	return pick(ports)
}

func pick(ports []Info) (string, error) {
	for _, p := range ports {
		if p.IsArduino {
			return p.Name, nil
		}
	}
	return "", ErrNoDevice
}

func looksLikeArduino(p Info) bool {
	product := strings.ToLower(p.Product)
	if strings.Contains(product, "arduino") || strings.Contains(product, "ch340") {
		return true
	}
	if !p.IsUSB {
		return false
	}
	vid := strings.ToUpper(p.VID)
	return vid == vidArduino || vid == vidCH340
}

// Open opens the configured port, detecting it first when Path is empty.
// The returned port's Read returns (0, nil) once ReadTimeout elapses.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (serial.Port, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := opts.Path
	if path == "" {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		logger.Info("detected serial device", "port", detected)
		path = detected
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	logger.Info("serial port open", "port", path, "baud", opts.BaudRate, "read_timeout", opts.ReadTimeout)
	return port, nil
}
