package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/peterbourgon/diskv"
)

const maxDiskCacheBytes = 100 << 20

// NewCachingTransport wraps base with an HTTP cache. The relay marks GET
// responses "private, no-cache" with an ETag, so every cached copy is
// revalidated and a 304 is answered from the cache. With an empty cacheDir
// the cache lives in memory for the life of the process; on disk it is only
// readable by the current user.
func NewCachingTransport(cacheDir string, base http.RoundTripper) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		cache = diskcache.NewWithDiskv(diskv.New(diskv.Options{
			BasePath:     cacheDir,
			CacheSizeMax: maxDiskCacheBytes,
			PathPerm:     0o700,
			FilePerm:     0o600,
		}))
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = base

	return transport
}
