package commands

import (
	"net/http"
	"time"
)

type Globals struct {
	Dev     bool
	Version string
}

// defaultWriteTimeout is raised when the backend timeout would exceed it.
const defaultWriteTimeout = time.Minute

func configureHTTPServer(addr string, handler http.Handler, backendTimeout time.Duration) *http.Server {
	writeTimeout := defaultWriteTimeout
	if backendTimeout > 0 && backendTimeout+10*time.Second > writeTimeout {
		writeTimeout = backendTimeout + 10*time.Second
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    16 * 1024, // 16KiB
	}
}
