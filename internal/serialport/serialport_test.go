package serialport

import (
	"context"
	"errors"
	"testing"
)

func TestLooksLikeArduino(t *testing.T) {
	tests := []struct {
		name string
		in   Info
		want bool
	}{
		{"uno by product", Info{Name: "/dev/ttyACM0", Product: "Arduino Uno", IsUSB: true}, true},
		{"ch340 by product", Info{Name: "COM3", Product: "USB-SERIAL CH340", IsUSB: true}, true},
		{"arduino vid", Info{Name: "/dev/ttyACM1", VID: "2341", PID: "0043", IsUSB: true}, true},
		{"ch340 vid lowercase", Info{Name: "/dev/ttyUSB0", VID: "1a86", PID: "7523", IsUSB: true}, true},
		{"ftdi", Info{Name: "/dev/ttyUSB1", Product: "FT232R USB UART", VID: "0403", IsUSB: true}, false},
		{"vid without usb", Info{Name: "/dev/ttyS0", VID: "2341"}, false},
		{"builtin uart", Info{Name: "/dev/ttyS0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeArduino(tt.in); got != tt.want {
				t.Errorf("looksLikeArduino(%+v) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPick(t *testing.T) {
	ports := []Info{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsArduino: true},
		{Name: "/dev/ttyACM0", IsArduino: true},
	}
	got, err := pick(ports)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got != "/dev/ttyUSB0" {
		t.Errorf("pick = %q; want first match /dev/ttyUSB0", got)
	}

	if _, err := pick([]Info{{Name: "/dev/ttyS0"}}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("pick without match: err = %v; want ErrNoDevice", err)
	}
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Open(ctx, Options{Path: "/dev/null-does-not-exist"}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Open: err = %v; want context.Canceled", err)
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := Open(context.Background(), Options{Path: "/dev/plantmon-missing", BaudRate: 9600}, nil)
	if err == nil {
		t.Fatal("Open: err = nil; want error for missing device")
	}
}
