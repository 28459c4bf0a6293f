package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Velocidex/ordereddict"
	"go.uber.org/zap/zapcore"

	"github.com/gomftnav/gomftnav/pkg/logger"
	"github.com/gomftnav/gomftnav/pkg/mftdb"
	"github.com/gomftnav/gomftnav/pkg/ntfs"
)

type Settings struct {
	ImageLoc string
	Entry    int64
	Outfile  string
	DBFile   string
	JSON     bool
	Quiet    bool
	Status   bool
	Verbose  bool
}

//GoMftNav opens the image and routes entries to whatever output the
//settings ask for.
func GoMftNav(s Settings) error {
	switch {
	case s.Quiet:
		logger.SetLevel(zapcore.WarnLevel)
	case s.Verbose:
		logger.SetLevel(zapcore.DebugLevel)
	default:
		logger.SetLevel(zapcore.InfoLevel)
	}

	nav, err := ntfs.Open(s.ImageLoc)
	if err != nil {
		return err
	}
	defer nav.Close()

	var entries <-chan ntfs.Entry
	if s.Entry >= 0 {
		e, err := nav.GetEntry(uint64(s.Entry))
		if err != nil {
			return err
		}
		c := make(chan ntfs.Entry, 1)
		c <- e
		close(c)
		entries = c
	} else {
		entries = nav.Stream()
	}

	//handle any output
	if s.DBFile != "" {
		return dbWriter(entries, s)
	}
	if s.Outfile != "" {
		return fileWriter(entries, s)
	}
	return consoleWriter(entries, s)
}

func consoleWriter(val <-chan ntfs.Entry, s Settings) error {
	count := 0
	for e := range val {
		count++
		if !s.Quiet {
			fmt.Print(formatEntry(e, s.JSON))
		}
		progress(count, s)
	}
	return nil
}

func fileWriter(val <-chan ntfs.Entry, s Settings) error {
	//build up the data to eventually write
	out := strings.Builder{}
	count := 0
	for e := range val {
		count++
		out.WriteString(formatEntry(e, s.JSON))
		progress(count, s)
	}
	file, err := os.OpenFile(s.Outfile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(out.String())
	return err
}

func dbWriter(val <-chan ntfs.Entry, s Settings) error {
	w, err := mftdb.Open(s.DBFile)
	if err != nil {
		return err
	}
	count := 0
	for e := range val {
		count++
		if err := w.Add(e); err != nil {
			w.Close()
			return err
		}
		progress(count, s)
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Logger.Sugar().Infof("wrote %d entries to %s", w.Total(), s.DBFile)
	return nil
}

func progress(count int, s Settings) {
	if s.Status && count%10000 == 0 {
		logger.Logger.Sugar().Infof("%d entries processed", count)
	}
}

//formatEntry renders one entry as a text line or a JSON object line. The
//text flags column marks unused slots with an x and directories with dir.
func formatEntry(e ntfs.Entry, asJSON bool) string {
	if asJSON {
		return jsonLine(e)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%8d ", e.Number)
	switch {
	case !e.InUse && e.IsDir:
		b.WriteString("x dir ")
	case !e.InUse:
		b.WriteString("x     ")
	case e.IsDir:
		b.WriteString("  dir ")
	default:
		b.WriteString("      ")
	}
	if e.HasName {
		b.WriteString(e.Name)
	} else {
		b.WriteString("-")
	}
	if e.HasReparse {
		fmt.Fprintf(&b, " [reparse 0x%08x, %d bytes]", e.ReparseTag, len(e.ReparseData))
	}
	if e.Corrupt {
		b.WriteString(" (corrupt)")
	}
	b.WriteString("\n")
	return b.String()
}

func jsonLine(e ntfs.Entry) string {
	d := ordereddict.NewDict().
		Set("entry", e.Number).
		Set("in_use", e.InUse).
		Set("dir", e.IsDir).
		Set("corrupt", e.Corrupt)
	if e.HasName {
		d.Set("name", e.Name).
			Set("namespace", e.Namespace).
			Set("parent", e.ParentEntry())
	}
	if e.HasReparse {
		d.Set("reparse_tag", e.ReparseTag).
			Set("reparse_data", hex.EncodeToString(e.ReparseData))
	}
	j, err := json.Marshal(d)
	if err != nil {
		logger.Logger.Sugar().Debugf("entry %d: %v", e.Number, err)
		return ""
	}
	return string(j) + "\n"
}
