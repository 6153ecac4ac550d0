package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/YLivay/csview/dataset"
	"github.com/YLivay/csview/log"
	"github.com/YLivay/csview/reader"
)

func main() {
	if err := run(); err != nil {
		log.Fatalln(err.Error())
	}
}

func run() error {
	var (
		delimiter   string
		chunkSize   int64
		initialRows int64
		filterExpr  string
		dumpRows    int64
	)
	flag.StringVar(&delimiter, "delimiter", "", "field delimiter (single character, auto-detected when empty)")
	flag.Int64Var(&chunkSize, "chunk-size", dataset.DefaultChunkSize, "bytes fetched per range request")
	flag.Int64Var(&initialRows, "initial-rows", dataset.DefaultInitialRowCount, "rows probed up front to seed the row count estimate")
	flag.StringVar(&filterExpr, "filter", "", "jq expression; rows where it yields a truthy value are highlighted")
	flag.Int64Var(&dumpRows, "rows", 100, "rows to print when stdout is not a terminal")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file or URL>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	target := flag.Arg(0)

	if len(delimiter) > 1 {
		return errors.New("delimiter must be a single character")
	}

	var filter *rowFilter
	if filterExpr != "" {
		var err error
		filter, err = newRowFilter(filterExpr)
		if err != nil {
			return errors.New("Failed to compile filter: " + err.Error())
		}
	}

	ctx, cancelCtx := context.WithCancel(context.Background())

	cleanupOsSignals := setupOsSignals(ctx, cancelCtx)
	defer cleanupOsSignals()

	src, cleanupSource, err := prepareSource(target)
	if err != nil {
		return errors.New("Failed to prepare row source: " + err.Error())
	}
	defer cleanupSource()

	opts := dataset.Options{
		ChunkSize:       chunkSize,
		InitialRowCount: initialRows,
	}
	if delimiter != "" {
		opts.Delimiter = delimiter[0]
	}

	ds, err := dataset.New(ctx, src, opts)
	if err != nil {
		return errors.New("Failed to open dataset: " + err.Error())
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return dumpTable(ctx, os.Stdout, ds, filter, dumpRows)
	}

	app := NewApplication(target, ds, filter)
	if err := app.Run(ctx, cancelCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupOsSignals(ctx context.Context, cancelCtx context.CancelFunc) (cleanup func()) {
	// Catch ctrl+c signal and make it close the context instead of immediately
	// exiting. This allows us to do some cleanup.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	cleanup = func() {
		signal.Stop(signalChan)
		cancelCtx()
	}

	go func() {
		select {
		case <-signalChan:
			log.Println("Ctrl+C pressed")
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	return cleanup
}

// prepareSource picks the row source for the target: an HTTP source for
// URLs, a local file source for anything else. The HTTP source never
// downloads the whole file; it serves byte windows with range requests.
func prepareSource(target string) (src reader.Source, cleanup func(), err error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		client := &http.Client{Timeout: 30 * time.Second}
		return reader.NewHTTPSource(client, target), func() {}, nil
	}

	if target == "-" {
		// Stdin has no length and cannot be seeked, so windows of it cannot
		// be re-read on demand.
		return nil, nil, errors.New("reading from stdin is not supported, pass a file or URL")
	}

	fileSrc, err := reader.OpenFileSource(target)
	if err != nil {
		return nil, nil, errors.New("Failed to open file for reading: " + err.Error())
	}
	cleanup = func() {
		if err := fileSrc.Close(); err != nil {
			log.Println("Failed to close input file:", err)
		}
	}
	return fileSrc, cleanup, nil
}
