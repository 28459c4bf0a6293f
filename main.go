package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomftnav/gomftnav/cmd"
)

func main() {
	s := cmd.Settings{}
	flag.StringVar(&s.ImageLoc, "image", "", "Path to the NTFS volume image (required)")
	flag.Int64Var(&s.Entry, "entry", -1, "Read a single MFT entry instead of scanning the whole table")
	flag.StringVar(&s.Outfile, "out", "", "Write the listing to this file")
	flag.StringVar(&s.DBFile, "db", "", "Write entries to this sqlite database")
	flag.BoolVar(&s.JSON, "json", false, "Emit one JSON object per entry")
	flag.BoolVar(&s.Quiet, "quiet", false, "Suppress per entry console output")
	flag.BoolVar(&s.Status, "status", false, "Log progress during the scan")
	flag.BoolVar(&s.Verbose, "v", false, "Log skipped entries and layout detail")
	flag.Parse()

	if s.ImageLoc == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := cmd.GoMftNav(s); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
