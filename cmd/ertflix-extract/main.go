// Command ertflix-extract serves the extraction API, or extracts the page URLs
// given as arguments and prints their metadata as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ertflix-extract/internal/app"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [URL...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Without arguments the HTTP API is started; configuration is read from the environment.")
	}
	flag.Parse()

	application, err := app.New()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	if urls := flag.Args(); len(urls) > 0 {
		if failed := application.ExtractTo(ctx, os.Stdout, urls); failed > 0 {
			code = 1
		}
	} else if err := application.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		code = 1
	}

	stop()
	application.Shutdown()
	os.Exit(code)
}
