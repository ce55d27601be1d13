// Command tonearm runs the media library core with an interactive
// prompt: it scans the configured mounts in the background and answers
// browse/search commands. Transport layers (HTTP APIs) sit on top of
// the same Library type this shell drives.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tonearm/tonearm"
	"github.com/tonearm/tonearm/config"
	"github.com/tonearm/tonearm/index"
	"github.com/tonearm/tonearm/log"
	"github.com/tonearm/tonearm/store"
)

func main() {
	configPath := flag.String("config", "tonearm.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tonearm: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := log.NewLogger("tonearm", log.Parse(cfg.Log.Level), cfg.Log.File, false)
	logger.JSON = cfg.Log.JSON

	opts := []tonearm.Option{
		tonearm.WithLogger(logger),
		tonearm.WithRescanInterval(time.Duration(cfg.RescanInterval)),
	}

	var cache *store.SnapshotStore
	if cfg.SnapshotCache != "" {
		cache, err = store.Open(cfg.SnapshotCache)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts = append(opts, tonearm.WithSnapshotStore(cache))
	}

	lib, err := tonearm.New(cfg.MountPoints(), opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := lib.RestoreFromCache(ctx); err != nil {
		logger.Warn("Snapshot cache unusable: %v", err)
	}

	go func() {
		if err := lib.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Rescan loop stopped: %v", err)
		}
	}()

	return prompt(ctx, lib)
}

func prompt(ctx context.Context, lib *tonearm.Library) error {
	fmt.Println("tonearm shell: ls [path] | find <query> | info <path> | flatten [path] | mounts | rescan | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "quit", "exit":
			return nil
		case "mounts":
			for _, m := range lib.Mounts() {
				fmt.Printf("%-16s %s\n", m.Name, m.RealRoot)
			}
		case "rescan":
			report, err := lib.Rescan(ctx)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("%d songs, %d directories, %d skipped in %s\n",
				report.Songs, report.Directories, report.Skipped, report.Duration)
		case "ls":
			children, err := lib.Browse(arg)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			for _, cf := range children {
				printEntry(cf)
			}
		case "flatten":
			songs, err := lib.Flatten(arg)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			for _, s := range songs {
				fmt.Println(s.VirtualPath)
			}
		case "find":
			keys, err := lib.SearchQuery(arg)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			for _, k := range keys {
				fmt.Println(k)
			}
		case "info":
			song, err := lib.GetSong(arg)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			printSong(song)
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func printEntry(cf index.CollectionFile) {
	switch v := cf.(type) {
	case *index.Directory:
		fmt.Printf("d %s\n", v.VirtualPath)
	case *index.Song:
		fmt.Printf("- %s\n", v.VirtualPath)
	}
}

func printSong(s *index.Song) {
	fmt.Println(s.VirtualPath)
	printField("title", s.Title)
	printField("artist", s.Artist)
	printField("albumartist", s.AlbumArtist)
	printField("album", s.Album)
	printIntField("year", s.Year)
	printIntField("track", s.TrackNumber)
	printIntField("disc", s.DiscNumber)
	printIntField("duration", s.Duration)
	printField("artwork", s.ArtworkVirtualPath)
}

func printField(name string, value *string) {
	if value != nil {
		fmt.Printf("  %-12s %s\n", name, *value)
	}
}

func printIntField(name string, value *int) {
	if value != nil {
		fmt.Printf("  %-12s %d\n", name, *value)
	}
}
