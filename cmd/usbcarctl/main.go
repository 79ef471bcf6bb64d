package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abiosoft/ishell/v2"
	"github.com/caarlos0/env/v6"

	"github.com/seagrayinc/usbcar/internal/battery"
	"github.com/seagrayinc/usbcar/internal/car"
	"github.com/seagrayinc/usbcar/internal/usb"
)

type config struct {
	Transport  string        `env:"USBCAR_TRANSPORT" envDefault:"libusb"`
	PollPeriod time.Duration `env:"USBCAR_POLL_PERIOD" envDefault:"3s"`
}

var directions = map[string]car.Direction{
	"stop":          car.Stop,
	"forward":       car.Forward,
	"right":         car.Right,
	"reverse-right": car.ReverseRight,
	"reverse":       car.Reverse,
	"reverse-left":  car.ReverseLeft,
	"left":          car.Left,
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "usbcarctl: config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	ctl, err := openController(cfg.Transport)
	if err != nil {
		fmt.Fprintf(os.Stderr, "usbcarctl: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := ctl.Release(); err != nil {
			slog.Warn("release failed", slog.Any("error", err))
		}
	}()

	shell := ishell.New()
	shell.Println("usbcar development shell")

	shell.AddCmd(&ishell.Cmd{
		Name: "list",
		Help: "list attached USB devices",
		Func: func(c *ishell.Context) {
			infos, err := usb.List()
			if err != nil {
				c.Err(err)
				return
			}
			for _, info := range infos {
				c.Printf("%04x:%04x %s %s\n",
					info.VendorID, info.ProductID, info.Manufacturer, info.Product)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "drive",
		Help: "drive <direction> [ms]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: drive <direction> [ms]"))
				return
			}
			d, ok := directions[c.Args[0]]
			if !ok {
				c.Err(fmt.Errorf("unknown direction %q", c.Args[0]))
				return
			}
			if !ctl.Move(d) {
				c.Println("command not acknowledged; car stopped")
				return
			}
			if len(c.Args) > 1 {
				ms, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				time.Sleep(time.Duration(ms) * time.Millisecond)
				ctl.Move(car.Stop)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop the car",
		Func: func(c *ishell.Context) {
			if !ctl.Move(car.Stop) {
				c.Println("command not acknowledged")
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "battery",
		Help: "sample battery telemetry once",
		Func: func(c *ishell.Context) {
			s, err := ctl.BatteryStatus()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(s)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "watch",
		Help: "poll battery until interrupted",
		Func: func(c *ishell.Context) {
			var est battery.Estimator
			t := time.NewTicker(cfg.PollPeriod)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					s, err := ctl.BatteryStatus()
					if err != nil {
						c.Err(err)
						return
					}
					est.Observe(s)
					if level, ok := est.Level(); ok {
						c.Printf("%s (%d%%)\n", s, level)
					} else {
						c.Println(s)
					}
				}
			}
		},
	})

	go func() {
		<-ctx.Done()
		shell.Stop()
	}()

	shell.Run()
}

func openController(transport string) (*car.Controller, error) {
	var (
		t   usb.Transport
		err error
	)
	switch transport {
	case "libusb":
		t, err = usb.OpenLibUSB(car.VendorID, car.ProductID)
	case "hidapi":
		t, err = usb.OpenHID(car.VendorID, car.ProductID)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
	if err != nil {
		return nil, err
	}
	return car.OpenWith(t), nil
}
