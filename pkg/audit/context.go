package audit

import "context"

// RequestMeta is the origin of an administrative request.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

type requestMetaKey struct{}

// WithRequestMeta stores request metadata in ctx for the default extractors.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns metadata stored by WithRequestMeta.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}

// contextExtractor extracts a string from context, reporting whether it was found.
type contextExtractor func(context.Context) (string, bool)

func metaIP(ctx context.Context) (string, bool) {
	m, ok := RequestMetaFromContext(ctx)
	return m.IP, ok && m.IP != ""
}

func metaUserAgent(ctx context.Context) (string, bool) {
	m, ok := RequestMetaFromContext(ctx)
	return m.UserAgent, ok && m.UserAgent != ""
}

func metaRequestID(ctx context.Context) (string, bool) {
	m, ok := RequestMetaFromContext(ctx)
	return m.RequestID, ok && m.RequestID != ""
}
