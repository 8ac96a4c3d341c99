package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	orchestrators "github.com/ochairo/reloaded/internal/domain-orchestrators"
	"github.com/ochairo/reloaded/internal/domain/entities"
)

func runIntercept(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("intercept", flag.ExitOnError)
	common := addCommonFlags(fs)
	dryRun := fs.Bool("dry-run", false, "Stop after the catalog lookup")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded intercept <uri> [options]

Handle an app store install intent: resolve the package, query the catalog,
then download, verify, scan and hand the package to the system installer.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded intercept "market://details?id=com.example.notes"
  reloaded intercept "https://play.google.com/store/apps/details?id=com.example.notes" --dry-run
`)
	}

	uri := parseWithArg(fs, args, "install intent URI")

	if err := executeIntercept(ctx, fs, common, uri, *dryRun); err != nil {
		exitWithError(err)
	}
}

func executeIntercept(ctx context.Context, fs *flag.FlagSet, common *commonFlags, uri string, dryRun bool) error {
	c, err := openClient(ctx, fs, common)
	if err != nil {
		return err
	}
	defer c.Close()

	orch := c.installOrchestrator()

	entry, err := orch.Intercept(ctx, uri)
	if err != nil {
		return err
	}
	if dryRun {
		printEntry(entry)
		return nil
	}

	result, err := orch.DownloadAndInstall(ctx, entry)
	printInstallResult(result)
	return err
}

func runLookup(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded lookup <package> [options]

Show the catalog entry the server offers for this device's SDK version.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded lookup com.example.notes
  reloaded lookup com.example.notes --sdk 10
`)
	}

	packageName := parseWithArg(fs, args, "package name")

	if err := executeLookup(ctx, fs, common, packageName); err != nil {
		exitWithError(err)
	}
}

func executeLookup(ctx context.Context, fs *flag.FlagSet, common *commonFlags, packageName string) error {
	c, err := openClient(ctx, fs, common)
	if err != nil {
		return err
	}
	defer c.Close()

	entry, err := c.installOrchestrator().Lookup(ctx, packageName)
	if err != nil {
		return err
	}
	printEntry(entry)
	return nil
}

func runInstall(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded install <package> [options]

Look up a package in the catalog, download it, verify its hash and signature,
scan it and launch the system installer. MALWARE verdicts are never installed.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded install com.example.notes
  reloaded install com.example.notes --server http://192.168.1.10:3000
`)
	}

	packageName := parseWithArg(fs, args, "package name")

	if err := executeInstall(ctx, fs, common, packageName); err != nil {
		exitWithError(err)
	}
}

func executeInstall(ctx context.Context, fs *flag.FlagSet, common *commonFlags, packageName string) error {
	c, err := openClient(ctx, fs, common)
	if err != nil {
		return err
	}
	defer c.Close()

	orch := c.installOrchestrator()

	entry, err := orch.Lookup(ctx, packageName)
	if err != nil {
		return err
	}

	result, err := orch.DownloadAndInstall(ctx, entry)
	printInstallResult(result)
	return err
}

func printEntry(entry *entities.CatalogEntry) {
	fmt.Printf("\n📦 %s\n", entry.Title)
	fmt.Printf("   Package:     %s\n", entry.PackageName)
	fmt.Printf("   Version:     %s\n", entry.VersionName)
	fmt.Printf("   Min SDK:     %d\n", entry.MinSDK)
	fmt.Printf("   Permissions: %s\n", entry.PermissionsSummary)
	fmt.Printf("   Download:    %s\n", entry.DownloadURL)
	if entry.SHA256 != "" {
		fmt.Printf("   SHA-256:     %s\n", entry.SHA256)
	}
	if entry.SignatureURL != "" {
		fmt.Printf("   Signature:   %s\n", entry.SignatureURL)
	}
}

func printInstallResult(result *orchestrators.InstallResult) {
	if result == nil || result.FilePath == "" {
		return
	}

	fmt.Printf("\n📁 Saved: %s (%d bytes)\n", result.FilePath, result.Bytes)
	if result.Installed {
		fmt.Printf("✅ Installer launched in %v\n", result.Duration)
	}
}

// parseWithArg parses flags that may follow a single required positional argument
func parseWithArg(fs *flag.FlagSet, args []string, what string) string {
	var positional string
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		positional, args = args[0], args[1:]
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if positional == "" && fs.NArg() > 0 {
		positional = fs.Arg(0)
	}
	if positional == "" {
		fmt.Fprintf(os.Stderr, "Error: %s is required\n\n", what)
		fs.Usage()
		os.Exit(1)
	}
	return positional
}

func exitWithError(err error) {
	switch {
	case errors.Is(err, entities.ErrBlocked):
		fmt.Fprintf(os.Stderr, "🚫 %v\n", err)
		os.Exit(2)
	case errors.Is(err, entities.ErrHashMismatch):
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
