// Package restyutil dumps every HTTP exchange a resty client makes into an
// InstrumentOutput, one file per message. Used with --dump to debug upstream
// form changes.
package restyutil

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type messageIdKey struct{}

// InstrumentClient is a no-op when `output` is nil.
func InstrumentClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		messageId := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		req.SetContext(context.WithValue(req.Context(), messageIdKey{}, messageId))
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		messageId, ok := res.Request.Context().Value(messageIdKey{}).(string)
		if !ok {
			return nil
		}
		output.Write(messageId, formatHttpMessage(res))
		return nil
	})
}
