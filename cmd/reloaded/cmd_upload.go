package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/reloaded/internal/domain-adapters/gateways"
)

func runUpload(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded upload <file> [options]

Upload a package to the catalog server. The server stores it, scans it and
records the verdict for later /scan queries.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded upload notes.apk
  reloaded upload notes.apk --server http://192.168.1.10:3000
`)
	}

	filePath := parseWithArg(fs, args, "file path")

	if err := executeUpload(ctx, fs, common, filePath); err != nil {
		exitWithError(err)
	}
}

func executeUpload(ctx context.Context, fs *flag.FlagSet, common *commonFlags, filePath string) error {
	c, err := openClient(ctx, fs, common)
	if err != nil {
		return err
	}
	defer c.Close()

	local, err := c.scanner.HashFile(filePath)
	if err != nil {
		return err
	}

	fmt.Printf("📤 Uploading %s to %s\n", filepath.Base(filePath), c.cfg.ServerURL)
	result, err := c.catalog.Upload(ctx, filePath)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Stored as %s\n", result.Filename)
	fmt.Printf("   SHA-256: %s\n", result.SHA256)
	if result.Verdict != "" {
		fmt.Printf("   Verdict: %s\n", result.Verdict)
	}

	if result.SHA256 != "" && !gateways.HashesEqual(local, result.SHA256) {
		return fmt.Errorf("server hash %s does not match local hash %s", result.SHA256, local)
	}
	return nil
}
