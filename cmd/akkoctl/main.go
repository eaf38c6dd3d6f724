// akkoctl is a small diagnostic tool for MonsGeek/Akko keyboards: list
// discovered devices, probe their identity, issue raw queries, and watch the
// live event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/transport"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: akkoctl [-v] <command>

commands:
  list            list discovered devices
  probe           probe every device for identity and liveness
  query <cmd>     send one command byte (hex) and print the response
  monitor         stream keyboard events until interrupted
`)
	os.Exit(2)
}

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		usage()
	}

	var err error
	switch flag.Arg(0) {
	case "list":
		err = runList()
	case "probe":
		err = runProbe()
	case "query":
		if flag.NArg() < 2 {
			usage()
		}
		err = runQuery(flag.Arg(1))
	case "monitor":
		err = runMonitor()
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "akkoctl: %+v\n", err)
		os.Exit(1)
	}
}

func runList() error {
	disc, err := transport.NewDiscovery()
	if err != nil {
		return err
	}
	descs, err := disc.List()
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		fmt.Println("no devices found")
		return nil
	}
	for _, d := range descs {
		fmt.Printf("%04x:%04x  %-9s  %s\n", d.VendorID, d.ProductID, d.Kind, d.Product)
	}
	return nil
}

func runProbe() error {
	disc, err := transport.NewDiscovery()
	if err != nil {
		return err
	}
	probed, err := disc.Probe()
	if err != nil {
		return err
	}
	for _, p := range probed {
		d := p.Descriptor
		if p.Responsive {
			fmt.Printf("%04x:%04x  %-9s  device=%08x fw=%04x\n",
				d.VendorID, d.ProductID, d.Kind, p.Info.DeviceID, p.Info.Firmware)
		} else {
			fmt.Printf("%04x:%04x  %-9s  unresponsive\n", d.VendorID, d.ProductID, d.Kind)
		}
	}
	return nil
}

func runQuery(arg string) error {
	cmd, err := strconv.ParseUint(arg, 16, 8)
	if err != nil {
		return fmt.Errorf("bad command byte %q: %w", arg, err)
	}

	disc, err := transport.NewDiscovery()
	if err != nil {
		return err
	}
	client, err := disc.OpenPreferred()
	if err != nil {
		return err
	}
	defer client.Close()

	body, err := client.Query(byte(cmd), nil, proto.ChecksumByte7)
	if err != nil {
		return err
	}
	fmt.Printf("%s over %s:\n", proto.CommandName(byte(cmd)), client.Descriptor().Kind)
	fmt.Printf("% x\n", body)
	return nil
}

func runMonitor() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	disc, err := transport.NewDiscovery()
	if err != nil {
		return err
	}
	client, err := disc.OpenPreferred()
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("monitoring %s over %s, ctrl-c to stop\n",
		client.Descriptor().Product, client.Descriptor().Kind)

	for ctx.Err() == nil {
		ev, err := client.ReadEvent(250 * time.Millisecond)
		if err != nil {
			return err
		}
		if ev == nil {
			continue
		}
		fmt.Printf("%-18s %+v\n", ev.Kind(), ev)
	}
	return nil
}
