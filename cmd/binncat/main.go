// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

// Command binncat encodes, decodes, and dumps Binn values over stdin/stdout
// or files, one subcommand per operation.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/daimons/binn-go"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	log, err := cfg.Build()
	if err != nil {
		// zap's own config construction does not allocate a handle we can
		// log through yet, so fall back to a bare stderr print.
		fmt.Fprintln(os.Stderr, "binncat: logger init:", err)
		os.Exit(1)
	}
	return log
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func dumpCommand(c *cli.Context) error {
	log := newLogger()
	defer log.Sync()

	in, err := openInput(c.String("in"))
	if err != nil {
		return err
	}
	defer in.Close()

	dec := binn.NewDecoder(in)
	count := 0
	for {
		v, ok, err := dec.Decode()
		if err != nil {
			log.Error("decode failed", zap.Int("count", count), zap.Error(err))
			return err
		}
		if !ok {
			break
		}
		fmt.Println(v.String())
		count++
	}
	log.Info("dump complete", zap.Int("values", count))
	return nil
}

func encodeCommand(c *cli.Context) error {
	log := newLogger()
	defer log.Sync()

	out, err := openOutput(c.String("out"))
	if err != nil {
		return err
	}
	defer out.Close()

	var v binn.Value
	switch kind := c.String("kind"); kind {
	case "text":
		v = binn.Text(c.String("value"))
	case "u64":
		var n uint64
		if _, err := fmt.Sscan(c.String("value"), &n); err != nil {
			return fmt.Errorf("binncat: invalid u64 value %q: %w", c.String("value"), err)
		}
		v = binn.NewU64(n)
	case "null":
		v = binn.Null()
	default:
		return fmt.Errorf("binncat: unsupported --kind %q (want text, u64, or null)", kind)
	}

	n, err := binn.EncodeValue(v, out)
	if err != nil {
		log.Error("encode failed", zap.Error(err))
		return err
	}
	log.Info("encode complete", zap.Uint32("bytes", uint32(n)))
	return nil
}

func decodeCommand(c *cli.Context) error {
	log := newLogger()
	defer log.Sync()

	in, err := openInput(c.String("in"))
	if err != nil {
		return err
	}
	defer in.Close()

	v, ok, err := binn.NewDecoder(in).Decode()
	if err != nil {
		log.Error("decode failed", zap.Error(err))
		return err
	}
	if !ok {
		return fmt.Errorf("binncat: empty input, no value to decode")
	}
	fmt.Println(v.String())
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "binncat"
	app.Usage = "encode, decode, and dump Binn-encoded values"
	app.Version = binn.Version

	inFlag := cli.StringFlag{Name: "in", Usage: "input file, or - / empty for stdin"}
	outFlag := cli.StringFlag{Name: "out", Usage: "output file, or - / empty for stdout"}

	app.Commands = []cli.Command{
		{
			Name:  "dump",
			Usage: "decode every value in the stream and print its debug form",
			Flags: []cli.Flag{inFlag},
			Action: dumpCommand,
		},
		{
			Name:  "decode",
			Usage: "decode a single value and print its debug form",
			Flags: []cli.Flag{inFlag},
			Action: decodeCommand,
		},
		{
			Name:  "encode",
			Usage: "encode a single scalar value from flags",
			Flags: []cli.Flag{
				outFlag,
				cli.StringFlag{Name: "kind", Usage: "text, u64, or null"},
				cli.StringFlag{Name: "value", Usage: "value to encode, interpreted per --kind"},
			},
			Action: encodeCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "binncat:", err)
		os.Exit(1)
	}
}
