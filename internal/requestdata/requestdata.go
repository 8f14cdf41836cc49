package requestdata

import (
	"context"
)

var requestDataKey = struct{}{}

// RequestData carries the authenticated API client identity for a request.
type RequestData struct {
	TokenString string
	ClientID    string
	Scopes      []string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

func (rd *RequestData) HasScope(scope string) bool {
	if rd == nil {
		return false
	}
	for _, s := range rd.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
