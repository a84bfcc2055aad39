// Command doe generates reduced test designs from a parameter model and
// verifies their coverage guarantees.
//
// Usage:
//
//	doe generate -params params.json -technique pairwise [-out design.json]
//	doe generate -params params.json -technique fracfact -resolution IV
//	doe verify   -params params.json -design design.json
//	doe report   -params params.json -design design.json -html coverage.html
//	doe store    list|get|delete [args]
//	doe migrate  up|down|version|force [args]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/casewise/doe/internal/config"
	"github.com/casewise/doe/internal/doe"
	"github.com/casewise/doe/internal/doestore"
	"github.com/casewise/doe/internal/report"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "store":
		runStore(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: doe <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  generate   build a design from a parameter model")
	fmt.Fprintln(os.Stderr, "  verify     recheck a design's coverage guarantee")
	fmt.Fprintln(os.Stderr, "  report     write coverage reports (HTML chart, PNG plot)")
	fmt.Fprintln(os.Stderr, "  store      list, fetch, or delete cached designs")
	fmt.Fprintln(os.Stderr, "  migrate    manage the design store schema")
}

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	paramsPath := fs.String("params", "", "parameter model JSON file (required)")
	technique := fs.String("technique", "pairwise", "full|fracfact|pairwise")
	resolution := fs.String("resolution", "", "requested resolution for fracfact (III, IV, or V)")
	generators := fs.String("generators", "", "comma-separated generator strings, e.g. \"D=ABC,E=BCD\"")
	limitsPath := fs.String("limits", "", "limits config JSON file (optional)")
	dbPath := fs.String("db", "", "design store database; caches the result when set")
	outPath := fs.String("out", "", "output file (default stdout)")
	fs.Parse(args)

	ps := loadParams(*paramsPath)

	limits := doe.DefaultLimits()
	if *limitsPath != "" {
		cfg, err := config.LoadLimitsConfig(*limitsPath)
		if err != nil {
			log.Fatalf("Failed to load limits config: %v", err)
		}
		limits = cfg.Limits()
	}

	var (
		design        *doe.Design
		err           error
		optionsDigest string
	)
	switch *technique {
	case "full", "full_factorial":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		design, err = doe.GenerateFullFactorial(ctx, ps, limits)
	case "fracfact", "fractional_factorial":
		opts := doe.FracFactOptions{}
		if *resolution != "" {
			opts.Resolution, err = doe.ParseResolution(*resolution)
			if err != nil {
				log.Fatalf("Invalid resolution: %v", err)
			}
		}
		if *generators != "" {
			opts.Generators = strings.Split(*generators, ",")
		}
		design, err = doe.GenerateFractionalFactorial(ps, opts)
		if design != nil {
			optionsDigest = doestore.FracFactDigest(design.Coverage)
		}
	case "pairwise":
		design, err = doe.GeneratePairwise(ps)
	default:
		log.Fatalf("Unknown technique: %s", *technique)
	}
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	out, err := design.CanonicalJSON()
	if err != nil {
		log.Fatalf("Failed to encode design: %v", err)
	}

	if *dbPath != "" {
		db, err := doestore.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open design store: %v", err)
		}
		defer db.Close()
		store := doestore.NewStore(db.DB)
		key := doestore.CacheKey(ps.Fingerprint(), design.Technique, optionsDigest)
		rec, err := store.Put(design, key)
		if err != nil {
			log.Fatalf("Failed to store design: %v", err)
		}
		log.Printf("Stored design %s (%d scenarios)", rec.DesignID, rec.ScenarioCount)
	}

	writeOutput(*outPath, out)
	log.Printf("✓ %s design: %d scenarios, %s", design.Technique, len(design.Scenarios), design.Coverage.Guarantee)
}

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	paramsPath := fs.String("params", "", "parameter model JSON file (required)")
	designPath := fs.String("design", "", "design JSON file (required)")
	fs.Parse(args)

	ps := loadParams(*paramsPath)
	design := loadDesign(*designPath)

	result, err := doe.Verify(design, ps)
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))

	if !result.Verified {
		log.Printf("Coverage gap: %d missing pairs, %d effect gaps",
			len(result.MissingPairs), len(result.EffectGaps))
		os.Exit(1)
	}
	log.Printf("✓ Verified")
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	paramsPath := fs.String("params", "", "parameter model JSON file (required)")
	designPath := fs.String("design", "", "design JSON file (required)")
	htmlPath := fs.String("html", "", "write interactive coverage charts to this HTML file")
	pngPath := fs.String("png", "", "write a coverage growth plot to this PNG file")
	fs.Parse(args)

	ps := loadParams(*paramsPath)
	design := loadDesign(*designPath)

	summary, err := report.Coverage(design, ps)
	if err != nil {
		log.Fatalf("Failed to compute coverage: %v", err)
	}

	if *htmlPath == "" && *pngPath == "" {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode summary: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	if *htmlPath != "" {
		f, err := os.Create(*htmlPath)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *htmlPath, err)
		}
		if err := report.WriteHTML(summary, f); err != nil {
			f.Close()
			log.Fatalf("Failed to render charts: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("Failed to write %s: %v", *htmlPath, err)
		}
		log.Printf("✓ Wrote %s", *htmlPath)
	}

	if *pngPath != "" {
		if err := report.SavePNG(summary, *pngPath); err != nil {
			log.Fatalf("Failed to save plot: %v", err)
		}
		log.Printf("✓ Wrote %s", *pngPath)
	}
}

func runStore(args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	dbPath := fs.String("db", "designs.db", "design store database")
	paramHash := fs.String("param-hash", "", "filter list by parameter set fingerprint")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("Usage: doe store [flags] list|get <id>|delete <id>")
	}

	db, err := doestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open design store: %v", err)
	}
	defer db.Close()
	store := doestore.NewStore(db.DB)

	switch fs.Arg(0) {
	case "list":
		records, err := store.List(*paramHash)
		if err != nil {
			log.Fatalf("Failed to list designs: %v", err)
		}
		for _, r := range records {
			fmt.Printf("%s  %-22s  %5d scenarios  %s\n",
				r.DesignID, r.Technique, r.ScenarioCount, r.ParameterHash[:12])
		}
		if len(records) == 0 {
			log.Printf("No stored designs")
		}
	case "get":
		if fs.NArg() < 2 {
			log.Fatal("Usage: doe store get <design_id>")
		}
		design, _, err := store.Get(fs.Arg(1))
		if err != nil {
			log.Fatalf("Failed to fetch design: %v", err)
		}
		out, err := design.CanonicalJSON()
		if err != nil {
			log.Fatalf("Failed to encode design: %v", err)
		}
		fmt.Println(string(out))
	case "delete":
		if fs.NArg() < 2 {
			log.Fatal("Usage: doe store delete <design_id>")
		}
		if err := store.Delete(fs.Arg(1)); err != nil {
			log.Fatalf("Failed to delete design: %v", err)
		}
		log.Printf("✓ Deleted %s", fs.Arg(1))
	default:
		log.Fatalf("Unknown store action: %s", fs.Arg(0))
	}
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "designs.db", "design store database")
	migrationsDir := fs.String("migrations", "migrations", "migrations directory")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("Usage: doe migrate [flags] up|down|version|force <version>")
	}

	db, err := doestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open design store: %v", err)
	}
	defer db.Close()

	switch fs.Arg(0) {
	case "up":
		if err := db.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("✓ All migrations applied")
	case "down":
		if err := db.MigrateDown(*migrationsDir); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("✓ Rolled back one migration")
	case "version":
		version, dirty, err := db.MigrateVersion(*migrationsDir)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		fmt.Printf("version: %d (dirty: %v)\n", version, dirty)
	case "force":
		if fs.NArg() < 2 {
			log.Fatal("Usage: doe migrate force <version>")
		}
		version, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			log.Fatalf("Invalid version %q: %v", fs.Arg(1), err)
		}
		if err := db.MigrateForce(*migrationsDir, version); err != nil {
			log.Fatalf("Migration force failed: %v", err)
		}
		log.Printf("✓ Forced version to %d", version)
	default:
		log.Fatalf("Unknown migrate action: %s", fs.Arg(0))
	}
}

func loadParams(path string) *doe.ParameterSet {
	if path == "" {
		log.Fatal("-params is required")
	}
	ps, err := config.LoadParameterSet(path)
	if err != nil {
		log.Fatalf("Failed to load parameter model: %v", err)
	}
	return ps
}

func loadDesign(path string) *doe.Design {
	if path == "" {
		log.Fatal("-design is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read design: %v", err)
	}
	var d doe.Design
	if err := json.Unmarshal(raw, &d); err != nil {
		log.Fatalf("Failed to parse design: %v", err)
	}
	return &d
}

func writeOutput(path string, data []byte) {
	if path == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
}
