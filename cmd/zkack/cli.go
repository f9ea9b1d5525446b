package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/pflag"
)

type cli struct {
	name   string
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{name: "zkack", stdout: stdout, stderr: stderr}
	if len(args) > 0 && args[0] != "" {
		c.name = filepath.Base(args[0])
	}
	if len(args) < 2 {
		c.usage()
		return 1
	}

	switch args[1] {
	case "keygen":
		return c.runKeygen(args[2:])
	case "digest":
		return c.runDigest(args[2:])
	case "sign":
		return c.runSign(args[2:])
	case "verify":
		return c.runVerify(args[2:])
	case "ack":
		return c.runAck(args[2:])
	case "receipts":
		if len(args) >= 3 {
			switch args[2] {
			case "dump":
				return c.runReceiptsDump(args[3:])
			case "search":
				return c.runReceiptsSearch(args[3:])
			}
		}
	case "proof":
		if len(args) >= 3 {
			switch args[2] {
			case "keygen":
				return c.runProofKeygen(args[3:])
			case "produce":
				return c.runProofProduce(args[3:])
			}
		}
	case "help", "-h", "--help":
		c.usage()
		return 0
	}

	c.usage()
	return 1
}

func (c *cli) usage() {
	fmt.Fprintf(c.stderr, "usage:\n")
	fmt.Fprintf(c.stderr, "  %s keygen [--out-dir ./keys]\n", c.name)
	fmt.Fprintf(c.stderr, "  %s digest <message.eml>\n", c.name)
	fmt.Fprintf(c.stderr, "  %s sign --privkey <dev-priv.json> --to <addr> [--kid <kid>] [--ack-by-secs 900] [--out <file>] <message.eml>\n", c.name)
	fmt.Fprintf(c.stderr, "  %s verify [--keystore <pubkeys.json>] [--to <addr>] [--digest-from <original.eml>] (<signed.eml>|--token <dat>)\n", c.name)
	fmt.Fprintf(c.stderr, "  %s ack [--verifier <url>] [--proof <proof>] [--recv-domain <domain>] [--dkim-pass] <signed.eml>\n", c.name)
	fmt.Fprintf(c.stderr, "  %s receipts dump [--path <ledger.jsonl>]\n", c.name)
	fmt.Fprintf(c.stderr, "  %s receipts search [--verifier <url>] [--kid <kid>] [--since <rfc3339>] [--limit <n>]\n", c.name)
	fmt.Fprintf(c.stderr, "  %s proof keygen [--out <file>]\n", c.name)
	fmt.Fprintf(c.stderr, "  %s proof produce --key-file <file> [--keystore <pubkeys.json>] <signed.eml>\n", c.name)
}

func (c *cli) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(c.name+" "+name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) fail(format string, args ...any) int {
	fmt.Fprintf(c.stderr, format+"\n", args...)
	return 1
}

func (c *cli) printJSON(v any) int {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return c.fail("encode output: %v", err)
	}
	return 0
}

func jsonLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
