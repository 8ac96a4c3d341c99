package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	common := addCommonFlags(fs)
	category := fs.String("category", "", "Only show packages in this category")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded list [options]

List the packages offered by the catalog server.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded list
  reloaded list --category tools
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if err := executeList(ctx, fs, common, *category); err != nil {
		exitWithError(err)
	}
}

func executeList(ctx context.Context, fs *flag.FlagSet, common *commonFlags, category string) error {
	c, err := openClient(ctx, fs, common)
	if err != nil {
		return err
	}
	defer c.Close()

	packages, err := c.catalog.ListPackages(ctx)
	if err != nil {
		return err
	}

	if category != "" {
		filtered := make([]entities.Package, 0)
		for _, p := range packages {
			if strings.EqualFold(p.Category, category) {
				filtered = append(filtered, p)
			}
		}
		packages = filtered
	}

	fmt.Printf("Available packages (%d total):\n\n", len(packages))

	for _, p := range packages {
		fmt.Printf("  %-32s %s\n", p.ID(), p.Description)
		if p.Category != "" {
			fmt.Printf("  %-32s Category: %s\n", "", p.Category)
		}
		if p.SizeBytes > 0 {
			fmt.Printf("  %-32s Size: %d bytes\n", "", p.SizeBytes)
		}
		if p.SHA256 != "" {
			fmt.Printf("  %-32s 🔒 SHA-256: %s\n", "", p.SHA256)
		}
		fmt.Println()
	}
	return nil
}
