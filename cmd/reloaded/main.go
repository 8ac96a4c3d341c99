package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "serve":
		runServe(ctx, os.Args[2:])
	case "intercept":
		runIntercept(ctx, os.Args[2:])
	case "lookup":
		runLookup(ctx, os.Args[2:])
	case "install":
		runInstall(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "scan":
		runScan(ctx, os.Args[2:])
	case "hash":
		runHash(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "upload":
		runUpload(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`reloaded - Alternative catalog client and server for legacy devices

Usage:
  reloaded <command> [options]

Commands:
  serve      Run the catalog server
  intercept  Handle a store install intent (market:// or play.google.com link)
  lookup     Show the catalog entry for a package
  install    Download, scan and install a package from the catalog
  list       List packages offered by the catalog
  scan       Scan a local package file
  hash       Print the SHA-256 of a file
  verify     Verify a file against a hash and/or OpenPGP signature
  upload     Upload a package to the catalog

Configuration is read from $RELOADED_CONFIG or the user config dir, then
RELOADED_SERVER_URL, VIRUSTOTAL_API_KEY, RELOADED_CACHE_DIR and RELOADED_DB.

Use "reloaded <command> --help" for more information about a command.`)
}
