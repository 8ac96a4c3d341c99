package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/reloaded/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/reloaded/internal/domain-orchestrators"
	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
)

func runScan(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	common := addCommonFlags(fs)
	var (
		packageName = fs.String("package", "", "Package name hint when the file cannot be inspected")
		remote      = fs.Bool("remote", false, "Also ask the catalog server for its recorded verdict")
		verbose     = fs.Bool("verbose", false, "Show the permissions found and earlier scans of the package")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded scan <file> [options]

Run the pre-install scan on a local package file.

Performs:
  - SHA-256 hashing (results are cached by hash)
  - Permission risk scoring from the package manifest
  - VirusTotal reputation lookup (needs VIRUSTOTAL_API_KEY)

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded scan notes.apk
  reloaded scan notes.apk --remote --verbose
`)
	}

	filePath := parseWithArg(fs, args, "file path")

	if err := executeScan(ctx, fs, common, filePath, *packageName, *remote, *verbose); err != nil {
		exitWithError(err)
	}
}

func executeScan(ctx context.Context, fs *flag.FlagSet, common *commonFlags, filePath, packageName string, remote, verbose bool) error {
	if !fileExists(filePath) {
		return fmt.Errorf("%w: %s does not exist", entities.ErrIO, filePath)
	}

	c, err := openClient(ctx, fs, common)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("🔍 Scanning %s\n\n", filepath.Base(filePath))

	if verbose {
		info, err := c.security.Inspect(ctx, filePath)
		if err != nil {
			return err
		}
		displayPackageInfo(info, c.scanner)
	}

	result, err := c.scanner.PreInstallScan(ctx, filePath, services.ScanHints{PackageName: packageName})
	if err != nil {
		return err
	}

	fmt.Println(orchestrators.ScanSummary(result))
	fmt.Printf("SHA-256: %s\n", result.SHA256)

	if verbose && result.PackageName != "" {
		history, err := c.results.ListByPackage(ctx, result.PackageName)
		if err != nil {
			c.logger.Warn("scan history unavailable", interfaces.F("package", result.PackageName), interfaces.F("error", err))
		} else {
			printScanHistory(os.Stdout, history, result.SHA256)
		}
	}

	if remote {
		verdict, err := c.catalog.RemoteVerdict(ctx, result.SHA256, result.PackageName)
		if err != nil {
			fmt.Printf("⚠️  Catalog verdict unavailable: %v\n", err)
		} else {
			fmt.Printf("🌐 Catalog verdict: %s\n", verdict)
		}
	}

	if c.scanner.ShouldBlockInstall(result) {
		return fmt.Errorf("%w: %s", entities.ErrBlocked, filepath.Base(filePath))
	}
	return nil
}

func displayPackageInfo(info *entities.PackageInfo, scanner services.ScanService) {
	fmt.Printf("📋 Package\n")
	if info.PackageName != "" {
		fmt.Printf("   Name: %s %s\n", info.PackageName, info.VersionName)
	}
	if info.SignatureFingerprint != "" {
		fmt.Printf("   Signer: %s\n", info.SignatureFingerprint)
	} else {
		fmt.Printf("   Signer: ❌ unsigned\n")
	}
	fmt.Printf("   Permissions (%d):\n", len(info.Permissions))
	for _, p := range info.Permissions {
		fmt.Printf("   - %s (+%d)\n", p, scanner.PermissionRiskScore([]string{p}))
	}
	fmt.Println()
}

// printScanHistory lists earlier scans of the same package, marking the current file
func printScanHistory(w io.Writer, history []*entities.ScanResult, current string) {
	if len(history) == 0 {
		return
	}
	fmt.Fprintf(w, "\n🕘 Scan history (%d)\n", len(history))
	for _, h := range history {
		marker := " "
		if h.SHA256 == current {
			marker = "*"
		}
		version := h.VersionName
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(w, " %s %s  %-10s %-10s risk %3d%%  VT %d  %s\n",
			marker, h.CheckedTime().UTC().Format(time.RFC3339), version, h.Verdict, h.RiskScore, h.VTDetections, shortHash(h.SHA256))
	}
}

func shortHash(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func runHash(_ context.Context, args []string) {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded hash <file>...

Print the lowercase hex SHA-256 of each file.
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: file path is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	verifier := gateways.NewChecksumVerifier()
	failed := false
	for _, path := range fs.Args() {
		sum, err := verifier.CalculateChecksum(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s  %s\n", sum, path)
	}

	if failed {
		os.Exit(1)
	}
}
