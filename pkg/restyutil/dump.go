// Package restyutil dumps the http traffic of a resty client, it is meant
// for looking at the markup a scraper actually received.
package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpMessages writes every response the client receives (and the request
// that led to it) to output. A nil output is a no-op.
func DumpMessages(client *resty.Client, prefix string, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(fmt.Sprintf("%s-%04d", prefix, id), formatHttpMessage(res))
		return nil
	})
}
