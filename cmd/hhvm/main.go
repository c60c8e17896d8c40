package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cessu-hh/hh"
	"github.com/cessu-hh/hh/internal/opcodes"
)

const defaultWritePermission = 0644 // -rw-r--r--

func main() {
	var (
		imagePath  = flag.String("image", "", "Path to the verified bytecode image")
		heapWords  = flag.Int("heap-words", 1<<16, "Heap semispace size, in words")
		stackWords = flag.Int("stack-words", 1<<12, "Operand stack size, in words")
		ticks      = flag.Int("ticks", 1<<20, "Maximum instructions to execute before giving up")
		profiling  = flag.Bool("profile", false, "Enable per-instruction execution counters")
		insnTrace  = flag.Bool("trace-insn", false, "Log every instruction before it executes")
		gcTrace    = flag.Bool("trace-gc", false, "Log collector activity")
		btOut      = flag.String("backtrace-out", "", "Path to write a final backtrace to, if non-empty")
	)
	flag.Parse()

	if *imagePath == "" {
		log.Fatal("Image not informed")
	}

	imageData, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatalf("Can't read image file: %s", err.Error())
	}

	cfg := hh.NewConfig()
	cfg.SetInt("heap.words", *heapWords)
	cfg.SetInt("stack.words", *stackWords)
	cfg.SetBool("profiling.enabled", *profiling)
	cfg.SetBool("insn.trace", *insnTrace)
	cfg.SetBool("gc.trace", *gcTrace)

	table := opcodes.Default()
	ctx, err := hh.NewContext(imageData, table, cfg, *heapWords, *stackWords)
	if err != nil {
		log.Fatalf("Can't start context: %s", err.Error())
	}

	if err := ctx.Step(table, *ticks); err != nil {
		log.Printf("Execution stopped: %s", err.Error())
	}

	if *btOut != "" {
		f, err := os.OpenFile(*btOut, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultWritePermission)
		if err != nil {
			log.Fatalf("Can't open backtrace output: %s", err.Error())
		}
		defer f.Close()
		ctx.Backtrace(f, nil)
	}

	hwm := ctx.Free()
	fmt.Printf("stack high-water mark: %d words\n", hwm)
}
