// Command mmsclient connects to an MMS server, associates, reads a variable,
// and prints the result. It is a thin driver over the go61850 facade, not a
// general-purpose tool.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/slonegd/go61850mms"
	"github.com/slonegd/go61850mms/client"
	"github.com/slonegd/go61850mms/logger"
)

func main() {
	address := flag.String("address", "127.0.0.1:102", "MMS server address")
	domainID := flag.String("domain", "simpleIOGenericIO", "domain to read from")
	itemID := flag.String("item", "GGIO1$MX$AnIn1$mag$f", "item to read")
	timeout := flag.Duration("timeout", 10*time.Second, "connect/request timeout")
	flag.Parse()

	log_ := logger.NewLogger("mmsclient")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	session, err := go61850.Dial(ctx, *address, log_, nil, []client.Option{
		client.WithRequestTimeout(*timeout),
		client.WithConnectTimeout(*timeout),
	})
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer session.Close()

	if callErr := session.Connect(ctx); callErr != nil {
		log.Fatalf("connect: %v", callErr)
	}
	log.Printf("associated with %s", *address)

	resp, callErr := session.ReadVariable(*domainID, *itemID)
	if callErr != nil {
		log.Fatalf("read %s/%s: %v", *domainID, *itemID, callErr)
	}

	for i, result := range resp.ListOfAccessResult {
		if result.Success {
			log.Printf("result[%d]: %v", i, result.Value)
		} else {
			log.Printf("result[%d]: error %v", i, result.Error)
		}
	}

	if callErr := session.Conclude(ctx); callErr != nil {
		log.Printf("conclude: %v", callErr)
	}
}
