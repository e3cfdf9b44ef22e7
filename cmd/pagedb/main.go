// Command pagedb is an interactive shell over a single table heap: it
// opens a heap file through a buffer pool and lets the operator insert
// raw tuples and scan them back, with no query language in between.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/pagedb/engine/internal/bufferpool"
	"github.com/pagedb/engine/internal/config"
	"github.com/pagedb/engine/internal/heap"
	"github.com/pagedb/engine/internal/storage"
	"github.com/pagedb/engine/pkg/util"
)

// History is a flat, append-only command log kept alongside readline's
// own in-memory history so it survives process restarts.
type History struct {
	path  string
	lines []string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer util.CloseFileFunc(f)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *History) Append(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || h.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer util.CloseFileFunc(f)

	if _, err := fmt.Fprintln(f, line); err != nil {
		return err
	}
	h.lines = append(h.lines, line)
	return nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".pagedb_history"
	}
	return filepath.Join(home, ".pagedb_history")
}

// shell binds a Table to the resources (pager, pool) that back it so
// main can close them on exit.
type shell struct {
	pager *storage.Pager
	pool  *bufferpool.Pool
	table *heap.Table
}

func openShell(cfg config.Config) (*shell, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.File), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	pager, err := storage.Open(cfg.Storage.File)
	if err != nil {
		return nil, err
	}

	pool, err := bufferpool.New(pager, cfg.Storage.PoolSize)
	if err != nil {
		_ = pager.Close()
		return nil, err
	}

	table, err := heap.Open(pool, pager)
	if err != nil {
		_ = pager.Close()
		return nil, err
	}

	return &shell{pager: pager, pool: pool, table: table}, nil
}

func (s *shell) close() error {
	if err := s.pool.FlushAll(); err != nil {
		return err
	}
	return s.pager.Close()
}

func (s *shell) handle(line string) {
	fields := strings.SplitN(line, " ", 2)
	cmd := fields[0]

	switch cmd {
	case "insert":
		if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
			fmt.Println("usage: insert <text>")
			return
		}
		rid, err := s.table.Insert([]byte(fields[1]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("inserted %s\n", rid)

	case "scan":
		it, err := heap.NewIterator(s.table)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		n := 0
		for {
			tuple, rid, ok, err := it.Next()
			if err != nil {
				fmt.Printf("error: %v\n", err)
				return
			}
			if !ok {
				break
			}
			fmt.Printf("%s\t%s\n", rid, string(tuple))
			n++
		}
		fmt.Printf("(%d tuples)\n", n)

	case "stats":
		fmt.Printf("pages on disk: %d\n", s.pager.PageCount())
		fmt.Printf("first page: %d\n", s.table.FirstPageID())

	case "flush":
		if err := s.pool.FlushAll(); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Println("OK")

	default:
		fmt.Printf("unknown command: %s\n", cmd)
	}
}

func printHelp() {
	fmt.Println(`meta commands:
  insert <text>   append a tuple to the heap
  scan            print every tuple in RID order
  stats           show page count and the heap's first page
  flush           write every dirty page back to disk
  help            show this help
  quit | exit     quit`)
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a pagedb.yaml config file")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
	)
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	sh, err := openShell(cfg)
	if err != nil {
		slog.Error("open heap", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := sh.close(); err != nil {
			slog.Error("close heap", "err", err)
		}
	}()

	h := NewHistory(*histPath)
	_ = h.Load(*histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagedb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	fmt.Printf("opened %s\n", cfg.Storage.File)
	fmt.Println("type help for a list of commands")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if line == "help" {
			printHelp()
			continue
		}

		_ = h.Append(line)
		_ = rl.SaveHistory(line)
		sh.handle(line)
	}
}
