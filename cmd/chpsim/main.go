// Command chpsim runs a CHP process network to completion or deadlock.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dudecc/chpsim/sim"
)

func main() {
	mainProc := flag.String("main", "main", "entry process name")
	searchPath := flag.String("I", "", "module search path (colon-separated)")
	batch := flag.Bool("batch", false, "non-interactive batch mode")
	quiet := flag.Bool("q", false, "quiet mode")
	logPath := flag.String("log", "", "redirect log output to file")
	outPath := flag.String("o", "", "redirect user stdout to file")
	tracePath := flag.String("trace", "", "trace output path")
	traceAll := flag.Bool("traceall", false, "trace every statement")
	watchAll := flag.Bool("watchall", false, "watch every wire transition")
	seed := flag.Int64("seed", 0, "PRNG seed")
	timeSeed := flag.Bool("timeseed", false, "seed the PRNG from the current time")
	timed := flag.Bool("timed", true, "use timed scheduling (false = randomised priority)")
	critical := flag.Bool("critical", false, "track critical-path breadcrumbs")
	noHide := flag.Bool("nohide", false, "do not hide synthetic bridge processes from diagnostics")
	strict := flag.Bool("strict", false, "enable the strict interference checker")
	strictWarnings := flag.Bool("strict-warnings", false, "promote warnings to errors")
	flag.Parse()

	cfg := sim.DefaultConfig()
	cfg.MainProcess = *mainProc
	if *searchPath != "" {
		cfg.SearchPath = strings.Split(*searchPath, ":")
	}
	cfg.Batch = *batch
	cfg.Quiet = *quiet
	cfg.LogPath = *logPath
	cfg.OutPath = *outPath
	cfg.TracePath = *tracePath
	cfg.TraceAll = *traceAll
	cfg.WatchAll = *watchAll
	cfg.Seed = *seed
	if *timeSeed {
		cfg.Seed = time.Now().UnixNano()
	}
	cfg.Timed = *timed
	cfg.Critical = *critical
	cfg.NoHide = *noHide
	cfg.Strict = *strict
	cfg.StrictWarnings = *strictWarnings

	if cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}

	var logOut *os.File
	if cfg.LogPath != "" {
		f, err := os.Create(cfg.LogPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		logOut = f
	}

	defs, err := loadProcessDefs(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	ctx := sim.InitCore(cfg, defs)
	if logOut != nil {
		ctx.Logger.SetOutput(logOut)
	}

	if err := sim.PrepareExec(ctx, cfg.MainProcess); err != nil {
		log.Print(err)
		os.Exit(1)
	}
	if err := sim.InteractInstantiate(ctx); err != nil {
		log.Print(err)
		os.Exit(1)
	}
	if err := sim.PrepareChp(ctx); err != nil {
		log.Print(err)
		os.Exit(1)
	}
	if err := sim.InteractChp(ctx); err != nil {
		log.Print(err)
		sim.TermExec(ctx)
		os.Exit(1)
	}
	sim.TermExec(ctx)
}

// loadProcessDefs is the hook a real build wires to the parser
// (external collaborator, spec §6): it would lex/parse the named CHP
// source files and return a fully resolved process-definition table.
// No parser ships with the core (spec §1 Non-goals), so this stub
// ignores its arguments and always returns an empty table.
func loadProcessDefs(files []string) (map[string]*sim.ProcessDef, error) {
	return map[string]*sim.ProcessDef{}, nil
}
