package reporting

import (
	"context"
	"maps"
	"time"
)

type reportingMetaContextKey struct{}

// ReportingMeta is attached to every event reported from a request
type ReportingMeta struct {
	tags      map[string]string
	extras    map[string]string
	userID    string
	startedAt time.Time
}

// MetaFromContext returns a copy of the meta in ctx, safe to modify
func MetaFromContext(ctx context.Context) ReportingMeta {
	meta, _ := ctx.Value(reportingMetaContextKey{}).(ReportingMeta)
	return ReportingMeta{
		tags:      cloneOrEmpty(meta.tags),
		extras:    cloneOrEmpty(meta.extras),
		userID:    meta.userID,
		startedAt: meta.startedAt,
	}
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return maps.Clone(m)
}

func updateMeta(ctx context.Context, update func(meta *ReportingMeta)) context.Context {
	meta := MetaFromContext(ctx)
	update(&meta)
	return context.WithValue(ctx, reportingMetaContextKey{}, meta)
}

func setStartedAtInContext(ctx context.Context, startedAt time.Time) context.Context {
	return updateMeta(ctx, func(meta *ReportingMeta) {
		meta.startedAt = startedAt
	})
}

func AddExtrasToContext(ctx context.Context, extras map[string]string) context.Context {
	return updateMeta(ctx, func(meta *ReportingMeta) {
		maps.Copy(meta.extras, extras)
	})
}

func AddTagsToContext(ctx context.Context, tags map[string]string) context.Context {
	return updateMeta(ctx, func(meta *ReportingMeta) {
		maps.Copy(meta.tags, tags)
	})
}

func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return updateMeta(ctx, func(meta *ReportingMeta) {
		meta.userID = userID
	})
}

// SetSessionInContext tags reports with the session they concern.
// The credential is only added as a digest.
func SetSessionInContext(ctx context.Context, session string, credentialDigest string) context.Context {
	return updateMeta(ctx, func(meta *ReportingMeta) {
		meta.tags["session"] = session
		if credentialDigest != "" {
			meta.extras["credentialDigest"] = credentialDigest
		}
	})
}
