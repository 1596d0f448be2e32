package main

// Command mssutil is the CLI/benchmarking harness spec.md section 1 keeps
// out of the core and defers to the surrounding tooling.
//
// Grounded on the teacher's xmssmt/main.go (cli.NewApp, cli.Command,
// cmdAlgs) for the algs subcommand, and original_source/src/bench.c's
// timing-loop structure for bench.

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/dvorak-labs/go-mss"
	"github.com/urfave/cli"
)

func cmdAlgs(c *cli.Context) error {
	for _, name := range mss.ListNames() {
		fmt.Println(name)
	}
	return nil
}

func cmdKeygen(c *cli.Context) error {
	name := c.Args().Get(0)
	keyPath := c.Args().Get(1)
	if name == "" || keyPath == "" {
		return cli.NewExitError("usage: mssutil keygen <alg> <keyfile>", 1)
	}
	p := mss.ParamsFromName(name)
	if p == nil {
		return cli.NewExitError(fmt.Sprintf("unknown algorithm: %s", name), 1)
	}

	sk, pk, err := mss.GenerateKeyPair(*p)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	container, cerr := mss.OpenFSPrivateKeyContainer(keyPath)
	if cerr != nil {
		return cli.NewExitError(cerr.Error(), 1)
	}
	defer container.Close()
	if cerr := container.Reset(*p, sk.Root, sk.State); cerr != nil {
		return cli.NewExitError(cerr.Error(), 1)
	}

	fmt.Printf("root: %s\n", hex.EncodeToString(pk.Root))
	return nil
}

func cmdSign(c *cli.Context) error {
	keyPath := c.Args().Get(0)
	msgPath := c.Args().Get(1)
	if keyPath == "" || msgPath == "" {
		return cli.NewExitError("usage: mssutil sign <keyfile> <msgfile>", 1)
	}

	container, cerr := mss.OpenFSPrivateKeyContainer(keyPath)
	if cerr != nil {
		return cli.NewExitError(cerr.Error(), 1)
	}
	defer container.Close()

	p, root, state, cerr := container.Load()
	if cerr != nil {
		return cli.NewExitError(cerr.Error(), 1)
	}
	ctx, err := mss.NewContext(p)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	msg, rerr := ioutil.ReadFile(msgPath)
	if rerr != nil {
		return cli.NewExitError(rerr.Error(), 1)
	}

	sig, err := ctx.Sign(state, msg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if cerr := container.Put(state); cerr != nil {
		return cli.NewExitError(cerr.Error(), 1)
	}

	buf, err := sig.MarshalBinary(p)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Printf("root: %s\n", hex.EncodeToString(root))
	fmt.Printf("sig: %s\n", hex.EncodeToString(buf))
	return nil
}

func cmdVerify(c *cli.Context) error {
	name := c.Args().Get(0)
	rootHex := c.Args().Get(1)
	msgPath := c.Args().Get(2)
	sigHex := c.Args().Get(3)
	if name == "" || rootHex == "" || msgPath == "" || sigHex == "" {
		return cli.NewExitError("usage: mssutil verify <alg> <root-hex> <msgfile> <sig-hex>", 1)
	}

	p := mss.ParamsFromName(name)
	if p == nil {
		return cli.NewExitError(fmt.Sprintf("unknown algorithm: %s", name), 1)
	}
	root, err := hex.DecodeString(rootHex)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	msg, err := ioutil.ReadFile(msgPath)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	sig, serr := mss.UnmarshalBinarySignature(*p, sigBytes)
	if serr != nil {
		return cli.NewExitError(serr.Error(), 1)
	}

	pk := &mss.PublicKey{Params: *p, Root: root}
	if verr := pk.Verify(msg, sig); verr != nil {
		return cli.NewExitError(verr.Error(), 1)
	}
	fmt.Println("OK")
	return nil
}

func cmdBench(c *cli.Context) error {
	name := c.Args().Get(0)
	if name == "" {
		name = "MSS-SHA2_16_2_256"
	}
	p := mss.ParamsFromName(name)
	if p == nil {
		return cli.NewExitError(fmt.Sprintf("unknown algorithm: %s", name), 1)
	}

	t0 := time.Now()
	sk, _, err := mss.GenerateKeyPair(*p)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Printf("keygen: %s\n", time.Since(t0))

	n := uint64(1) << p.H
	if n > 64 {
		n = 64
	}
	msg := []byte("benchmark message")
	t0 = time.Now()
	for i := uint64(0); i < n; i++ {
		if _, err := sk.Sign(msg); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	fmt.Printf("sign: %s/op over %d signatures\n", time.Since(t0)/time.Duration(n), n)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "mssutil"
	app.Usage = "generate, sign and verify with Merkle signature scheme keys"

	app.Commands = []cli.Command{
		{Name: "algs", Usage: "list registered MSS parameter sets", Action: cmdAlgs},
		{Name: "keygen", Usage: "generate a new key pair", Action: cmdKeygen},
		{Name: "sign", Usage: "sign a message with a key file", Action: cmdSign},
		{Name: "verify", Usage: "verify a signature against a root", Action: cmdVerify},
		{Name: "bench", Usage: "benchmark keygen/sign", Action: cmdBench},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
