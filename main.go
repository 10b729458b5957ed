package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebfe/scard"
	"github.com/pion/logging"

	"github.com/gregLibert/paycard/pkg/config"
	"github.com/gregLibert/paycard/pkg/link"
	"github.com/gregLibert/paycard/pkg/session"
	"github.com/gregLibert/paycard/pkg/trace"
)

var (
	flagConfig = flag.String("config", "", "YAML configuration file")
	flagReader = flag.String("reader", "", "PC/SC reader name (first reader if empty)")
	flagPN532  = flag.String("pn532", "", "PN532 device path, used instead of PC/SC")
	flagReplay = flag.String("replay", "", "replay a CBOR trace instead of reading a card")
	flagTrace  = flag.String("trace", "", "write the APDU exchanges to this CBOR file")
	flagDebug  = flag.Bool("debug", false, "log every APDU")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run reads one card and returns the exit status: 0 when card data was read.
func run() int {

	cfg := config.Default()
	if *flagConfig != "" {
		var err error
		if cfg, err = config.Load(*flagConfig); err != nil {
			log.Printf("Error loading configuration: %v", err)
			return 1
		}
	}
	if *flagTrace != "" {
		cfg.Trace = *flagTrace
	}

	factory := logging.NewDefaultLoggerFactory()
	level, _ := cfg.Level()
	if *flagDebug {
		level = logging.LogLevelTrace
	}
	factory.DefaultLogLevel = level

	sc, err := cfg.Session(factory)
	if err != nil {
		log.Printf("Error loading configuration: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tag, release, err := waitForTag(ctx)
	if err != nil {
		log.Printf("Error waiting for a card: %v", err)
		return 1
	}
	defer release()

	var rec *trace.Recorder
	if cfg.Trace != "" && *flagReplay == "" {
		rec = trace.NewRecorder()
		tag = rec.Tag(tag)
	}

	res, err := session.NewReader(sc).Run(tag)
	if err != nil {
		log.Printf("Error starting session: %v", err)
		return 1
	}

	if rec != nil {
		if err := trace.WriteFile(cfg.Trace, rec.Exchanges()); err != nil {
			log.Printf("Warning: Failed to write trace: %v", err)
		}
	}

	printResult(res)
	if res.Kind != session.Success {
		return 1
	}
	return 0
}

// waitForTag returns the tag of the selected source and a function that
// releases the source once the session is over.
func waitForTag(ctx context.Context) (session.Tag, func(), error) {
	switch {
	case *flagReplay != "":
		exchanges, err := trace.ReadFile(*flagReplay)
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf(">> Replaying %d exchanges from %s\n", len(exchanges), *flagReplay)
		return trace.NewReplayer(exchanges), func() {}, nil

	case *flagPN532 != "":
		device, err := link.OpenPN532(ctx, *flagPN532)
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			if err := device.Close(); err != nil {
				log.Printf("Warning: Failed to close PN532: %v", err)
			}
		}
		fmt.Printf(">> Waiting for a card on %s\n", *flagPN532)
		tag, err := link.WaitForTag(ctx, device)
		if err != nil {
			release()
			return nil, nil, err
		}
		return tag, release, nil
	}

	sc, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("establish PC/SC context: %w", err)
	}
	releaseContext := func() {
		if err := sc.Release(); err != nil {
			log.Printf("Warning: Failed to release context: %v", err)
		}
	}

	reader, err := link.FirstReader(sc, *flagReader)
	if err != nil {
		releaseContext()
		return nil, nil, err
	}
	fmt.Printf(">> Waiting for a card on %s\n", reader)

	tag, err := link.WaitForCard(ctx, sc, reader)
	if err != nil {
		releaseContext()
		return nil, nil, err
	}

	release := func() {
		fmt.Println(">> Remove the card")
		if err := link.WaitForRemoval(ctx, sc, reader); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Warning: Failed to wait for card removal: %v", err)
		}
		releaseContext()
	}
	return tag, release, nil
}

func printResult(res session.Result) {
	fmt.Println("\n=============================================")
	fmt.Printf(" Result: %s\n", res.Kind)
	fmt.Println("=============================================")

	if res.Kind != session.Success {
		return
	}
	fmt.Printf("  Scheme      : %s\n", res.Scheme)
	fmt.Printf("  Application : %X %q\n", res.AID, res.Label)
	fmt.Printf("  Card number : %s\n", res.Fields.PAN)
	if len(res.Fields.Expiry) == 4 {
		fmt.Printf("  Expiry      : %s/%s\n", res.Fields.Expiry[2:], res.Fields.Expiry[:2])
	}
	if res.Fields.HolderLastName != "" || res.Fields.HolderFirstName != "" {
		fmt.Printf("  Holder      : %s %s\n", res.Fields.HolderFirstName, res.Fields.HolderLastName)
	}
}
