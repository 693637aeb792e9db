package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/script-bridge/bind"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/interchange"
	"github.com/wippyai/script-bridge/transcoder"
	"github.com/wippyai/script-bridge/wasmguest"
)

func main() {
	var (
		jsonIn      = flag.String("json", "", "JSON input: a literal, a file path, or - for stdin")
		classesFile = flag.String("classes", "", "YAML file of scripted classes to load")
		newClass    = flag.String("new", "", "Instantiate a scripted class")
		fields      = flag.String("fields", "", "Comma-separated methods to decode from the instance")
		list        = flag.Bool("list", false, "List scripted classes and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		engine.SetLogger(logger)
		bind.SetLogger(logger)
		wasmguest.SetLogger(logger)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*classesFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *jsonIn == "" && *newClass == "" && !*list {
		fmt.Fprintln(os.Stderr, "Usage: bridge -json <input> [-classes file.yaml]")
		fmt.Fprintln(os.Stderr, "       bridge -classes file.yaml -new Class [-fields a,b,c]")
		fmt.Fprintln(os.Stderr, "       bridge -classes file.yaml -list")
		fmt.Fprintln(os.Stderr, "       bridge [-classes file.yaml] -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*jsonIn, *classesFile, *newClass, *fields, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(jsonIn, classesFile, newClass, fields string, listOnly bool) error {
	rt := engine.New()

	if classesFile != "" {
		if err := rt.LoadClasses(classesFile); err != nil {
			return err
		}
	}

	if listOnly {
		names := rt.ClassNames()
		if len(names) == 0 {
			fmt.Println("No scripted classes loaded.")
			return nil
		}
		fmt.Println("Scripted classes:")
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	if newClass != "" {
		if err := describeInstance(rt, newClass, fields); err != nil {
			return err
		}
	}

	if jsonIn != "" {
		if err := roundTripJSON(rt, jsonIn); err != nil {
			return err
		}
	}

	return nil
}

// roundTripJSON pushes JSON through the full conversion chain: guest graph,
// decoded Go value, and back out as JSON.
func roundTripJSON(rt *engine.Runtime, arg string) error {
	data, err := readInput(arg)
	if err != nil {
		return err
	}

	obj, err := interchange.FromJSON(rt, data)
	if err != nil {
		return err
	}
	fmt.Printf("Guest:   %s\n", engine.Inspect(obj))

	val, err := transcoder.DecodeValue(obj)
	if err != nil {
		return err
	}
	fmt.Printf("Decoded: %s", spew.Sdump(val))

	back, err := transcoder.Marshal(rt, val)
	if err != nil {
		return err
	}
	out, err := interchange.ToJSON(back)
	if err != nil {
		return err
	}
	fmt.Printf("JSON:    %s\n", out)
	return nil
}

// describeInstance instantiates a scripted class and decodes the named
// methods the way object-mode struct decoding would, one dispatch per field.
func describeInstance(rt *engine.Runtime, className, fields string) error {
	obj, err := rt.NewInstance(className)
	if err != nil {
		return err
	}
	fmt.Printf("Instance: %s\n", engine.Inspect(obj))

	for _, field := range splitFields(fields) {
		res, err := obj.Call(field)
		if err != nil {
			return err
		}
		val, err := transcoder.DecodeValue(res)
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s", field, spew.Sdump(val))
	}
	return nil
}

func splitFields(fields string) []string {
	if fields == "" {
		return nil
	}
	parts := strings.Split(fields, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readInput resolves the -json argument: - reads stdin, an existing file is
// read, anything else is taken as literal JSON.
func readInput(arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(os.Stdin)
	}
	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		return os.ReadFile(arg)
	}
	return []byte(arg), nil
}
