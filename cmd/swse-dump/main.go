// The swse-dump command displays the contents of a structure file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/swsel/structure"
	"github.com/swsel/structure/definitions"
	"github.com/swsel/structure/swse"
)

const usage = `usage: swse-dump [FLAGS] [INPUT] [OUTPUT]

Reads a structure file from INPUT, and writes to OUTPUT a readable
representation of its records. With -stat, writes statistics for the decoded
building instead.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.

FLAGS:
`

type BlockConnections struct {
	Type        string
	Name        string `json:",omitempty"`
	Connections int
}

type Stats struct {
	RootCount  int
	BlockCount int

	// Number of blocks per type.
	TypeCount map[string]int

	// Number of blocks per capability tag.
	TagCount map[string]int `json:",omitempty"`

	ConnectionCount int
	MetadataCount   int
	NamedCount      int

	MostConnected []BlockConnections `json:",omitempty"`
}

func (s *Stats) Fill(b *structure.Building, table *definitions.Table) {
	if b == nil {
		return
	}
	s.RootCount, s.BlockCount = b.Count()
	s.TypeCount = map[string]int{}
	s.TagCount = map[string]int{}
	for _, root := range b.Roots {
		for _, block := range root.Blocks {
			s.TypeCount[table.Name(block.ID)]++
			for _, tag := range table.Tags(table.Flags(block.ID)) {
				s.TagCount[tag]++
			}
			s.ConnectionCount += len(block.Connections)
			if block.Metadata != nil {
				s.MetadataCount++
			}
			if block.Name != "" {
				s.NamedCount++
			}
			if len(block.Connections) > 0 {
				s.MostConnected = append(s.MostConnected, BlockConnections{
					Type:        table.Name(block.ID),
					Name:        block.Name,
					Connections: len(block.Connections),
				})
			}
		}
	}
	sort.SliceStable(s.MostConnected, func(i, j int) bool {
		return s.MostConnected[i].Connections > s.MostConnected[j].Connections
	})
	if len(s.MostConnected) > 20 {
		s.MostConnected = s.MostConnected[:20]
	}
}

func main() {
	stat := flag.Bool("stat", false, "write statistics as JSON instead of records")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "[swse-dump] ", log.LstdFlags)
	if err := run(logger, *stat, flag.Args()); err != nil {
		logger.Println(err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, stat bool, args []string) (err error) {
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

	if !stat {
		warn, err := swse.Decoder{}.Dump(output, input)
		if warn != nil {
			logger.Println(fmt.Errorf("dump warning: %w", warn))
		}
		if err != nil {
			return fmt.Errorf("dump error: %w", err)
		}
		return nil
	}

	b, warn, err := swse.Decoder{}.Decode(input)
	if warn != nil {
		logger.Println(fmt.Errorf("decode warning: %w", warn))
	}
	if err != nil {
		return fmt.Errorf("decode error: %w", err)
	}

	var stats Stats
	stats.Fill(b, definitions.Default())

	je := json.NewEncoder(output)
	je.SetEscapeHTML(false)
	je.SetIndent("", "\t")
	if err := je.Encode(stats); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}
