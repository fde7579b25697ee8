// Command console is an interactive stackcc session: type external
// declarations to build up a program, inspect it with :type and :decl, and
// run it on the VM with :run.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"stackcc/pkg/config"
)

const (
	historyFile = ".stackcc_history"
	promptMain  = "cc> "
	promptCont  = "... "
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("console: ")

	cfg, cfgPath, err := config.FindAndLoad(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfgPath != "" {
		log.Printf("using %s", cfgPath)
	}

	fmt.Println("stackcc console, :help for commands")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	s := newSession(cfg, os.Stdout)
	for {
		input, ok := readComplete(ln)
		if !ok {
			fmt.Println()
			return
		}
		quit, err := s.eval(input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if quit {
			return
		}
		if strings.TrimSpace(input) != "" {
			ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		}
	}
}

// readComplete keeps prompting while the text so far is a prefix of a
// valid unit. Ctrl-C drops the pending input; EOF ends the session.
func readComplete(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			log.Printf("read: %v", err)
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}
