// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	legacyexe "github.com/saferwall/legacyexe"
	"github.com/saferwall/legacyexe/log"
)

// errFailed is returned by runDump/runImports when at least one file
// failed to decode, so cobra exits the process non-zero without printing
// a redundant "Error: ..." line (the real error was already logged to
// stderr as it happened).
var errFailed = errors.New("one or more files failed to decode")

var (
	wg   sync.WaitGroup
	jobs chan string = make(chan string)

	// stderrLogger writes every Warn/Error record to standard error — the
	// CLI's ambient logger, unlike the library's quiet-by-default one. It's
	// also handed to Open so the decoder's own warnings (e.g. a moveable
	// entry's INT-3F magic mismatch) surface to the operator.
	stderrLogger = log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelWarn))
	cliLogger    = log.NewHelper(stderrLogger)

	// failed is set once any file fails to decode, driving the process's
	// exit status (§6: "non-zero for any structural error").
	failed atomic.Bool
)

func openOpts() *legacyexe.Options {
	return &legacyexe.Options{Logger: stderrLogger}
}

func prettyPrint(iface interface{}) string {
	var prettyJSON bytes.Buffer
	buff, err := json.Marshal(iface)
	if err != nil {
		cliLogger.Errorf("JSON marshal error: %v", err)
		return ""
	}
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		cliLogger.Errorf("JSON indent error: %v", err)
		return string(buff)
	}
	return prettyJSON.String()
}

func isDirectory(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

// dumpOne decodes a single file and prints the sections the caller asked for.
func dumpOne(path string) {
	img, err := legacyexe.Open(path, openOpts())
	if err != nil {
		cliLogger.Errorf("%s: %v", path, err)
		failed.Store(true)
		return
	}
	defer img.Close()

	if wantAll || wantHeader {
		printLine(prettyPrint(img.Container))
	}
	if img.NE != nil {
		if wantAll || wantObjects {
			printLine(prettyPrint(img.NE.Segments))
		}
		if wantAll || wantEntries {
			printLine(prettyPrint(img.NE.Entries))
		}
		if wantAll || wantNames {
			printLine(prettyPrint(img.NE.ResidentNames))
			printLine(prettyPrint(img.NE.NonResidentName))
		}
	}
	if img.LX != nil {
		if wantAll || wantObjects {
			printLine(prettyPrint(img.LX.Objects))
		}
		if wantAll || wantEntries {
			printLine(prettyPrint(img.LX.Entries))
		}
		if wantAll || wantNames {
			printLine(prettyPrint(img.LX.ResidentNames))
			printLine(prettyPrint(img.LX.NonResidentName))
		}
	}
}

func printLine(s string) {
	if s == "" {
		return
	}
	os.Stdout.WriteString(s)
	os.Stdout.WriteString("\n")
}

// walkWorker drains jobs (directories) and dumps every file found directly
// inside each one. runDump starts a single walkWorker, which handles every
// directory sent over the shared channel in turn.
func walkWorker() {
	for dir := range jobs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			cliLogger.Errorf("%s: %v", dir, err)
			failed.Store(true)
			wg.Done()
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				dumpOne(filepath.Join(dir, e.Name()))
			}
		}
		wg.Done()
	}
}

func walkDirs(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	wg.Add(1)
	jobs <- root
	for _, e := range entries {
		if e.IsDir() {
			walkDirs(filepath.Join(root, e.Name()))
		}
	}
}

func runDump(cmd *cobra.Command, args []string) error {
	go walkWorker()

	for _, path := range args {
		if isDirectory(path) {
			walkDirs(path)
			wg.Wait()
		} else {
			dumpOne(path)
		}
	}
	if failed.Load() {
		return errFailed
	}
	return nil
}

func runImports(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		img, err := legacyexe.Open(path, openOpts())
		if err != nil {
			cliLogger.Errorf("%s: %v", path, err)
			failed.Store(true)
			continue
		}
		var imports []legacyexe.ImportTuple
		switch {
		case img.NE != nil:
			imports = img.NE.Imports
		case img.LX != nil:
			imports = img.LX.Imports
		}
		for _, imp := range imports {
			if imp.IsOrdinal {
				printLine(fmt.Sprintf("%s::@%d", imp.ModuleName, imp.ByOrdinal))
			} else {
				printLine(fmt.Sprintf("%s::%s", imp.ModuleName, imp.ByName))
			}
		}
		img.Close()
	}
	if failed.Load() {
		return errFailed
	}
	return nil
}
