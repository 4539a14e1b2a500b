// The swse-convert command rewrites a structure file in another version of
// the format, optionally within a compressed envelope.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/swsel/structure/swse"
)

const usage = `usage: swse-convert [FLAGS] [INPUT] [OUTPUT]

Reads a structure file from INPUT, and writes to OUTPUT the same structure,
encoded with the given version and compression. Compressed input is detected
and opened automatically.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.

FLAGS:
`

var compressions = map[string]swse.Compression{
	"none": swse.None,
	"lz4":  swse.LZ4,
	"zstd": swse.Zstd,
}

func main() {
	version := flag.Uint("version", swse.LatestVersion, "version of the format to write")
	compress := flag.String("compress", "none", "compression of the output: none, lz4, or zstd")
	verbose := flag.Bool("v", false, "log progress to stderr")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "[swse-convert] ", log.LstdFlags|log.Lmicroseconds)
	if *version > swse.MaxVersion {
		logger.Printf("version %d exceeds maximum of %d", *version, swse.MaxVersion)
		os.Exit(2)
	}
	method, ok := compressions[*compress]
	if !ok {
		logger.Printf("unknown compression %q", *compress)
		os.Exit(2)
	}
	enc := swse.Encoder{
		Version:     uint8(*version),
		Compression: method,
	}
	dec := swse.Decoder{}
	if *verbose {
		enc.Logger = logger
		dec.Logger = logger
	}

	if err := run(logger, dec, enc, flag.Args()); err != nil {
		logger.Println(err)
		os.Exit(1)
	}
}

// run converts the input named by args[0] into the output named by args[1].
// Warnings are logged; the first error is returned.
func run(logger *log.Logger, dec swse.Decoder, enc swse.Encoder, args []string) (err error) {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout

	if len(args) >= 1 && args[0] != "-" {
		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer in.Close()
		input = in
	}

	b, warn, err := dec.Decode(input)
	if warn != nil {
		logger.Println(fmt.Errorf("decode warning: %w", warn))
	}
	if err != nil {
		return fmt.Errorf("decode error: %w", err)
	}

	if len(args) >= 2 && args[1] != "-" {
		out, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		defer func() {
			if serr := out.Sync(); serr != nil && err == nil {
				err = fmt.Errorf("sync output: %w", serr)
			}
		}()
		output = out
	}

	warn, err = enc.Encode(output, b)
	if warn != nil {
		logger.Println(fmt.Errorf("encode warning: %w", warn))
	}
	if err != nil {
		return fmt.Errorf("encode error: %w", err)
	}
	return nil
}
