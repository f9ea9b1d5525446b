package main

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"zkack/internal/domain"
	"zkack/internal/infra/ledgerfile"
	"zkack/internal/infra/proof"
	"zkack/pkg/client"
	"zkack/pkg/dat"
)

const defaultVerifier = "http://127.0.0.1:8787"

func (c *cli) runAck(args []string) int {
	fs := c.flagSet("ack")
	var verifier string
	var proofValue string
	var recvDomain string
	var dkimPass bool
	var msgID string
	fs.StringVar(&verifier, "verifier", defaultVerifier, "verifier base URL")
	fs.StringVar(&proofValue, "proof", proof.MockToken, "proof artifact to submit")
	fs.StringVar(&recvDomain, "recv-domain", "local.test", "receiving domain")
	fs.BoolVar(&dkimPass, "dkim-pass", true, "whether the receiving MTA saw a passing DKIM result")
	fs.StringVar(&msgID, "msg-id", "", "message id (default: the message's Message-ID header)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		return c.fail("ack requires one message path")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return c.fail("read message: %v", err)
	}
	token, ok := dat.ExtractHeader(raw)
	if !ok {
		return c.fail("%s not found", domain.DATHeaderName)
	}
	if msgID == "" {
		msgID = messageID(raw)
	}

	req := client.AckRequest{
		DATJWS:     token,
		Proof:      proofValue,
		ReceivedTS: time.Now().UTC().Format(time.RFC3339),
		RecvDomain: recvDomain,
		DKIMPass:   &dkimPass,
	}
	if msgID != "" {
		req.MsgID = &msgID
	}
	resp, err := client.NewClient(verifier).Ack(context.Background(), req)
	if err != nil {
		return c.fail("ack: %v", err)
	}
	return c.printJSON(resp)
}

func messageID(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(msg.Header.Get("Message-ID"))
}

func (c *cli) runReceiptsDump(args []string) int {
	fs := c.flagSet("receipts dump")
	var path string
	fs.StringVar(&path, "path", "./data/receipts/ledger.jsonl", "file ledger path")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	receipts, err := ledgerfile.ReadFile(path)
	if err != nil {
		return c.fail("read ledger: %v", err)
	}
	for _, r := range receipts {
		line, err := jsonLine(r)
		if err != nil {
			return c.fail("encode receipt: %v", err)
		}
		if _, err := c.stdout.Write(line); err != nil {
			return 1
		}
	}
	fmt.Fprintf(c.stderr, "-- %d receipt(s)\n", len(receipts))
	return 0
}

func (c *cli) runReceiptsSearch(args []string) int {
	fs := c.flagSet("receipts search")
	var verifier string
	var kid string
	var since string
	var limit int
	fs.StringVar(&verifier, "verifier", defaultVerifier, "verifier base URL")
	fs.StringVar(&kid, "kid", "", "only receipts for this kid")
	fs.StringVar(&since, "since", "", "only receipts stored at or after this RFC3339 time")
	fs.IntVar(&limit, "limit", -1, "maximum number of receipts")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	q := client.SearchQuery{KID: kid}
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.fail("parse --since: %v", err)
		}
		q.Since = &t
	}
	if fs.Changed("limit") {
		q.Limit = &limit
	}
	receipts, err := client.NewClient(verifier).Search(context.Background(), q)
	if err != nil {
		return c.fail("search: %v", err)
	}
	return c.printJSON(map[string]any{"receipts": receipts})
}
