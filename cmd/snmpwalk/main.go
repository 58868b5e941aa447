// Command snmpwalk is a thin demonstration harness for the gosnmp client:
// it connects, walks a single OID subtree, and prints each resulting
// variable binding.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cesbit/gosnmp"
	"github.com/cesbit/gosnmp/config"
)

func main() {
	host := flag.String("host", "", "agent host")
	port := flag.Int("port", 161, "agent port")
	version := flag.String("version", "2c", "snmp version: 1, 2c or 3")
	community := flag.String("community", "public", "v1/v2c community string")
	user := flag.String("user", "", "v3 username")
	authProto := flag.String("auth-proto", "", "v3 auth protocol: MD5, SHA, SHA224, SHA256, SHA384, SHA512")
	authPass := flag.String("auth-pass", "", "v3 auth passphrase")
	privProto := flag.String("priv-proto", "", "v3 priv protocol: DES, AES")
	privPass := flag.String("priv-pass", "", "v3 priv passphrase")
	oid := flag.String("oid", ".1.3.6.1.2.1.1", "root oid to walk")
	table := flag.Bool("table", false, "passed to Walk as isTable; the walk's rows and termination do not depend on it")
	flag.Parse()

	if *host == "" {
		fmt.Fprintln(os.Stderr, "snmpwalk: -host is required")
		os.Exit(2)
	}

	root, err := gosnmp.ParseOID(*oid)
	if err != nil {
		log.Fatalf("snmpwalk: invalid -oid: %v", err)
	}

	client, err := config.NewClient(*host, config.Config{
		Version:        *version,
		Port:           *port,
		Community:      *community,
		Username:       *user,
		AuthProtocol:   *authProto,
		AuthPassphrase: *authPass,
		PrivProtocol:   *privProto,
		PrivPassphrase: *privPass,
	})
	if err != nil {
		log.Fatalf("snmpwalk: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		log.Fatalf("snmpwalk: connect: %v", err)
	}
	defer client.Close()

	vbs, err := client.Walk(ctx, root, *table)
	if err != nil {
		log.Fatalf("snmpwalk: walk: %v", err)
	}
	for _, vb := range vbs {
		fmt.Printf("%s = %v\n", vb.Name, vb.Value)
	}
}
